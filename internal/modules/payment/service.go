// README: Payment service mints QR intents at the provider and reconciles them to completed.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kurs/internal/apperr"
	"kurs/internal/events"
	"kurs/internal/modules/pickup"
	"kurs/internal/types"
	"kurs/internal/xendit"
)

var (
	ErrNotFound       = fmt.Errorf("%w: payment intent not found", apperr.ErrNotFound)
	ErrNoOpenIntent   = fmt.Errorf("%w: no open payment intent", apperr.ErrNotFound)
	ErrInvalidAmount  = fmt.Errorf("%w: amount must be positive", apperr.ErrValidation)
	ErrAmountMismatch = fmt.Errorf("%w: amount does not match pickup fee", apperr.ErrValidation)
	ErrUnknownPickup  = fmt.Errorf("%w: pickup not found", apperr.ErrValidation)
	ErrNotOwner       = fmt.Errorf("%w: pickup belongs to another requester", apperr.ErrValidation)
	ErrPickupClosed   = fmt.Errorf("%w: pickup is no longer payable", apperr.ErrConflict)
	ErrAlreadyPaid    = fmt.Errorf("%w: pickup already paid", apperr.ErrConflict)
	ErrConcurrentOpen = fmt.Errorf("%w: another payment intent was opened concurrently", apperr.ErrConflict)
	ErrSimulateProd   = fmt.Errorf("%w: payment simulation is disabled in production", apperr.ErrForbidden)
	ErrNotParticipant = fmt.Errorf("%w: not a participant of this pickup", apperr.ErrForbidden)
)

type Repository interface {
	CreateIntent(ctx context.Context, in *Intent) error
	Latest(ctx context.Context, pickupID types.ID) (*Intent, error)
	Open(ctx context.Context, pickupID types.ID) (*Intent, error)
	HasCompleted(ctx context.Context, pickupID types.ID) (bool, error)
	Complete(ctx context.Context, externalID string, at time.Time) (*Intent, bool, error)
	ListSweepable(ctx context.Context, from, to time.Time, limit int) ([]Intent, error)
	MarkChecked(ctx context.Context, ids []types.ID, at time.Time) error
}

type Provider interface {
	CreateQRCode(ctx context.Context, referenceID, currency string, amount int64) (*xendit.QRCode, error)
	SimulatePayment(ctx context.Context, qrID string, amount int64) (*xendit.Payment, error)
	ListPayments(ctx context.Context, qrID string) ([]xendit.Payment, error)
}

type Pickups interface {
	Get(ctx context.Context, id types.ID) (*pickup.Pickup, error)
}

type Options struct {
	Production bool
	Currency   string
}

type Service struct {
	repo     Repository
	provider Provider
	pickups  Pickups
	events   events.Publisher
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, provider Provider, pickups Pickups, pub events.Publisher, opts Options, log zerolog.Logger) *Service {
	if opts.Currency == "" {
		opts.Currency = types.CurrencyIDR
	}
	return &Service{
		repo:     repo,
		provider: provider,
		pickups:  pickups,
		events:   pub,
		opts:     opts,
		log:      log.With().Str("module", "payment").Logger(),
		now:      time.Now,
	}
}

const (
	sweepBatch  = 100
	sweepMaxAge = 24 * time.Hour
)

type CreateIntentCommand struct {
	PickupID    types.ID
	RequesterID types.ID
	Amount      int64
}

// CreateIntent opens a new pending intent for the pickup fee, superseding any
// older open intent of the same pickup.
func (s *Service) CreateIntent(ctx context.Context, cmd CreateIntentCommand) (*Intent, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	p, err := s.pickups.Get(ctx, cmd.PickupID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrUnknownPickup
	}
	if err != nil {
		return nil, err
	}
	if p.RequesterID != cmd.RequesterID {
		return nil, ErrNotOwner
	}
	if pickup.IsTerminal(p.Status) {
		return nil, ErrPickupClosed
	}
	paid, err := s.repo.HasCompleted(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrAlreadyPaid
	}
	if cmd.Amount != p.Fee.Amount {
		return nil, ErrAmountMismatch
	}

	now := s.now()
	currency := p.Fee.Currency
	if currency == "" {
		currency = s.opts.Currency
	}
	ref := fmt.Sprintf("PICKUP-%s-%d", p.ID, now.UnixMilli())
	qr, err := s.provider.CreateQRCode(ctx, ref, currency, cmd.Amount)
	if err != nil {
		return nil, upstream(err)
	}

	in := &Intent{
		ID:         types.ID(uuid.NewString()),
		PickupID:   p.ID,
		Amount:     types.Money{Amount: cmd.Amount, Currency: currency},
		ExternalID: ref,
		ProviderID: qr.ID,
		QRString:   qr.QRString,
		Status:     StatusPending,
		CreatedAt:  now,
	}
	if err := s.repo.CreateIntent(ctx, in); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("pickup_id", string(p.ID)).
		Str("external_id", ref).
		Str("qr_id", qr.ID).
		Msg("payment intent created")
	return in, nil
}

// Reconcile applies a provider-reported status to the intent with externalID.
// It is idempotent and never moves an intent out of completed.
func (s *Service) Reconcile(ctx context.Context, externalID, reported string) (Outcome, error) {
	logger := s.log.With().Str("external_id", externalID).Str("reported_status", reported).Logger()
	if NormalizeStatus(reported) != StatusCompleted {
		logger.Info().Msg("ignoring non-success payment status")
		return OutcomeIgnored, nil
	}
	if externalID == "" {
		return OutcomeIgnored, fmt.Errorf("%w: reference id missing", apperr.ErrValidation)
	}

	in, changed, err := s.repo.Complete(ctx, externalID, s.now())
	if err != nil {
		return "", err
	}
	if in == nil {
		logger.Warn().Msg("payment callback for unknown reference")
		return OutcomeUnknownReference, nil
	}
	if !changed {
		logger.Debug().Msg("payment already completed")
		return OutcomeAlreadyCompleted, nil
	}

	logger.Info().Str("pickup_id", string(in.PickupID)).Msg("payment completed")
	if s.events != nil {
		err := s.events.Publish(ctx, events.Event{
			EntityID: in.PickupID,
			Kind:     events.KindPaymentCompleted,
			Status:   string(StatusCompleted),
			At:       s.now(),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("publish payment event failed")
		}
	}
	return OutcomeCompleted, nil
}

// Simulate pays the open intent through the provider sandbox and reconciles
// from the result. Disabled in production.
func (s *Service) Simulate(ctx context.Context, pickupID, requesterID types.ID) (*Intent, error) {
	if s.opts.Production {
		return nil, ErrSimulateProd
	}
	p, err := s.pickups.Get(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if p.RequesterID != requesterID {
		return nil, ErrNotParticipant
	}
	open, err := s.repo.Open(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	paid, err := s.provider.SimulatePayment(ctx, open.ProviderID, open.Amount.Amount)
	if err != nil {
		return nil, upstream(err)
	}
	status := paid.Status
	if NormalizeStatus(status) != StatusCompleted {
		status, err = s.pollProvider(ctx, open.ProviderID)
		if err != nil {
			return nil, err
		}
	}
	if _, err := s.Reconcile(ctx, open.ExternalID, status); err != nil {
		return nil, err
	}
	return s.repo.Latest(ctx, pickupID)
}

// Latest returns the most recent intent of a pickup to its requester or collector.
func (s *Service) Latest(ctx context.Context, pickupID, viewerID types.ID) (*Intent, error) {
	p, err := s.pickups.Get(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if p.RequesterID != viewerID && (p.CollectorID == nil || *p.CollectorID != viewerID) {
		return nil, ErrNotParticipant
	}
	return s.repo.Latest(ctx, pickupID)
}

func (s *Service) HasCompleted(ctx context.Context, pickupID types.ID) (bool, error) {
	return s.repo.HasCompleted(ctx, pickupID)
}

// SweepPending asks the provider about intents pending longer than grace and
// reconciles the ones it reports as paid. Intents older than a day are left
// alone, and every polled intent moves to the back of the queue so one batch
// of abandoned QR codes cannot starve the rest.
func (s *Service) SweepPending(ctx context.Context, grace time.Duration) (int, error) {
	now := s.now()
	pending, err := s.repo.ListSweepable(ctx, now.Add(-sweepMaxAge), now.Add(-grace), sweepBatch)
	if err != nil {
		return 0, err
	}
	reconciled := 0
	var errs []error
	checked := make([]types.ID, 0, len(pending))
	defer func() {
		if err := s.repo.MarkChecked(ctx, checked, now); err != nil {
			s.log.Warn().Err(err).Int("intents", len(checked)).Msg("mark swept intents")
		}
	}()
	for _, in := range pending {
		status, err := s.pollProvider(ctx, in.ProviderID)
		if err != nil {
			errs = append(errs, fmt.Errorf("intent %s: %w", in.ID, err))
			continue
		}
		checked = append(checked, in.ID)
		outcome, err := s.Reconcile(ctx, in.ExternalID, status)
		if err != nil {
			errs = append(errs, fmt.Errorf("intent %s: %w", in.ID, err))
			continue
		}
		if outcome == OutcomeCompleted {
			reconciled++
		}
	}
	return reconciled, errors.Join(errs...)
}

// pollProvider returns a success status if any payment of qrID succeeded.
func (s *Service) pollProvider(ctx context.Context, qrID string) (string, error) {
	payments, err := s.provider.ListPayments(ctx, qrID)
	if err != nil {
		return "", upstream(err)
	}
	for _, p := range payments {
		if NormalizeStatus(p.Status) == StatusCompleted {
			return p.Status, nil
		}
	}
	return "", nil
}

func upstream(err error) error {
	if apiErr, ok := xendit.IsAPIError(err); ok {
		return fmt.Errorf("%w: %s", apperr.ErrUpstream, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
}
