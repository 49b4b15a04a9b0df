// README: Cron scheduler for maintenance jobs (payment sweep, idle collector sweep).
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"kurs/internal/config"
)

const jobTimeout = time.Minute

type PaymentSweeper interface {
	SweepPending(ctx context.Context, grace time.Duration) (int, error)
}

type CollectorSweeper interface {
	SweepIdle(ctx context.Context, idleAfter time.Duration) (int, error)
}

type Scheduler struct {
	cron       *cron.Cron
	cfg        config.SchedulerConfig
	grace      time.Duration
	payments   PaymentSweeper
	collectors CollectorSweeper
	log        zerolog.Logger
}

// New registers the jobs; an invalid cron spec is returned as an error.
func New(cfg config.SchedulerConfig, grace time.Duration, payments PaymentSweeper, collectors CollectorSweeper, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		cfg:        cfg,
		grace:      grace,
		payments:   payments,
		collectors: collectors,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepPendingPayments, s.SweepPayments); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.SweepIdleCollectors, s.SweepCollectors); err != nil {
		return err
	}
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("cron jobs registered")
	return nil
}

// SweepPayments reconciles intents whose webhook never arrived.
func (s *Scheduler) SweepPayments() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.payments.SweepPending(ctx, s.grace)
	if err != nil {
		s.log.Error().Err(err).Int("reconciled", n).Msg("payment sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("reconciled", n).Msg("payment sweep")
	}
}

// SweepCollectors sets idle collectors offline.
func (s *Scheduler) SweepCollectors() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.collectors.SweepIdle(ctx, s.cfg.CollectorIdleAfter)
	if err != nil {
		s.log.Error().Err(err).Int("swept", n).Msg("collector sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("swept", n).Msg("collector sweep")
	}
}

func (s *Scheduler) Start() {
	s.log.Info().Msg("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("cron scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
