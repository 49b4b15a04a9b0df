// README: Collector service keeps availability in Postgres and discoverability in the GEO index in sync.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kurs/internal/apperr"
	"kurs/internal/types"
)

var (
	ErrNotFound    = fmt.Errorf("%w: collector not found", apperr.ErrNotFound)
	ErrBadLocation = fmt.Errorf("%w: invalid location", apperr.ErrValidation)
)

type Repository interface {
	Get(ctx context.Context, userID types.ID) (*Collector, error)
	SetAvailability(ctx context.Context, userID types.ID, a Availability, at time.Time) (*Collector, error)
	UpdateLocation(ctx context.Context, userID types.ID, p types.Point, at time.Time) (*Collector, error)
	SetOffline(ctx context.Context, userID types.ID) (bool, error)
	ListIdle(ctx context.Context, before time.Time) ([]types.ID, error)
}

type Index interface {
	Add(ctx context.Context, userID types.ID, p types.Point) error
	Remove(ctx context.Context, userID types.ID) error
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error)
}

type Service struct {
	repo  Repository
	index Index
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(repo Repository, index Index, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		index: index,
		log:   log.With().Str("module", "collector").Logger(),
		now:   time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID types.ID) (*Collector, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) SetAvailability(ctx context.Context, userID types.ID, available bool) (*Collector, error) {
	a := Offline
	if available {
		a = Available
	}
	c, err := s.repo.SetAvailability(ctx, userID, a, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.syncIndex(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("collector_id", string(userID)).Str("availability", string(a)).Msg("availability changed")
	return c, nil
}

func (s *Service) UpdateLocation(ctx context.Context, userID types.ID, p types.Point) (*Collector, error) {
	if !p.Valid() || p.IsZero() {
		return nil, ErrBadLocation
	}
	c, err := s.repo.UpdateLocation(ctx, userID, p, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.syncIndex(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetOffline makes the collector undiscoverable. Unknown collectors are a no-op.
func (s *Service) SetOffline(ctx context.Context, userID types.ID) error {
	changed, err := s.repo.SetOffline(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.index.Remove(ctx, userID); err != nil {
		return err
	}
	if changed {
		s.log.Info().Str("collector_id", string(userID)).Msg("collector set offline")
	}
	return nil
}

func (s *Service) NearbyAvailable(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error) {
	if !p.Valid() {
		return nil, ErrBadLocation
	}
	return s.index.Nearby(ctx, p, radiusKm)
}

// SweepIdle sets offline every available collector unseen for idleAfter.
func (s *Service) SweepIdle(ctx context.Context, idleAfter time.Duration) (int, error) {
	ids, err := s.repo.ListIdle(ctx, s.now().Add(-idleAfter))
	if err != nil {
		return 0, err
	}
	swept := 0
	var errs []error
	for _, id := range ids {
		if err := s.SetOffline(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("collector %s: %w", id, err))
			continue
		}
		swept++
	}
	return swept, errors.Join(errs...)
}

func (s *Service) syncIndex(ctx context.Context, c *Collector) error {
	if c.Availability == Available && c.Location != nil {
		return s.index.Add(ctx, c.UserID, *c.Location)
	}
	if c.Availability != Available {
		return s.index.Remove(ctx, c.UserID)
	}
	return nil
}
