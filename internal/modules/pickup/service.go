// README: Pickup service applies lifecycle transitions; every change is logged, published and pushed.
package pickup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kurs/internal/apperr"
	"kurs/internal/events"
	"kurs/internal/geo"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/notify"
	"kurs/internal/types"
)

var (
	ErrNotFound          = fmt.Errorf("%w: pickup not found", apperr.ErrNotFound)
	ErrConflict          = fmt.Errorf("%w: pickup state changed concurrently", apperr.ErrConflict)
	ErrAlreadyClaimed    = fmt.Errorf("%w: pickup already claimed", apperr.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", apperr.ErrConflict)
	ErrNotAssigned       = fmt.Errorf("%w: pickup is not assigned to this collector", apperr.ErrForbidden)
	ErrNotParticipant    = fmt.Errorf("%w: not a participant of this pickup", apperr.ErrForbidden)
	ErrOwnPickup         = fmt.Errorf("%w: cannot collect your own pickup", ErrNotParticipant)
	ErrPaymentRequired   = fmt.Errorf("%w: pickup fee has not been paid", apperr.ErrPaymentRequired)
	ErrBadRequest        = apperr.ErrValidation
)

type Repository interface {
	Create(ctx context.Context, p *Pickup) error
	Get(ctx context.Context, id types.ID) (*Pickup, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, collectorID *types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]Pickup, error)
	ListByCollector(ctx context.Context, collectorID types.ID, statuses []Status) ([]Pickup, error)
	ListByRequester(ctx context.Context, requesterID types.ID, limit int) ([]Pickup, error)
	Earnings(ctx context.Context, collectorID types.ID) (*Earnings, error)
}

type PaymentChecker interface {
	HasCompleted(ctx context.Context, pickupID types.ID) (bool, error)
}

type FeeQuoter interface {
	Quote(ctx context.Context, volumeEstimate string) (types.Money, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID types.ID, msg notify.Message)
	NotifyMany(ctx context.Context, userIDs []types.ID, msg notify.Message)
}

type CollectorLocator interface {
	NearbyAvailable(ctx context.Context, p types.Point, radiusKm float64) ([]collector.Nearby, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

// Deps are the collaborators of Service. Payments and Pricing are required.
type Deps struct {
	Payments      PaymentChecker
	Pricing       FeeQuoter
	Events        events.Publisher
	Notifier      Notifier
	Collectors    CollectorLocator
	Geocoder      Geocoder
	MatchRadiusKm float64
	Log           zerolog.Logger
}

type Service struct {
	repo Repository
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, deps Deps) *Service {
	if deps.MatchRadiusKm <= 0 {
		deps.MatchRadiusKm = 5
	}
	return &Service{
		repo: repo,
		deps: deps,
		log:  deps.Log.With().Str("module", "pickup").Logger(),
		now:  time.Now,
	}
}

const defaultListLimit = 50

type CreateCommand struct {
	RequesterID    types.ID
	Address        string
	Location       types.Point
	WasteTypes     []WasteType
	Photos         []string
	Notes          string
	VolumeEstimate string
	ScheduledAt    *time.Time
}

type AcceptCommand struct {
	PickupID    types.ID
	CollectorID types.ID
}

type AdvanceCommand struct {
	PickupID    types.ID
	CollectorID types.ID
	Target      Status
}

type CancelCommand struct {
	PickupID types.ID
	ActorID  types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Pickup, error) {
	if err := validateCreate(&cmd); err != nil {
		return nil, err
	}
	address := strings.TrimSpace(cmd.Address)
	if address == "" && s.deps.Geocoder != nil {
		resolved, err := s.deps.Geocoder.ReverseGeocode(ctx, cmd.Location)
		if err != nil {
			s.log.Warn().Err(err).Msg("reverse geocode failed")
		}
		address = resolved
	}
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrBadRequest)
	}

	fee, err := s.deps.Pricing.Quote(ctx, cmd.VolumeEstimate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Pickup{
		ID:          types.ID(uuid.NewString()),
		RequesterID: cmd.RequesterID,
		Status:      StatusRequested,
		Address:     address,
		Location:    cmd.Location,
		WasteTypes:  dedupeWasteTypes(cmd.WasteTypes),
		Photos:      cmd.Photos,
		Notes:       optional(cmd.Notes),
		ScheduledAt: cmd.ScheduledAt,
		Fee:         fee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.VolumeEstimate = optional(cmd.VolumeEstimate)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, StatusNone, StatusRequested, ActorRequester, &cmd.RequesterID, now)
	s.publish(ctx, events.KindPickupCreated, p.ID, StatusRequested, cmd.RequesterID, now)
	s.announce(ctx, p)
	return p, nil
}

// Accept claims a requested pickup. Exactly one of several concurrent callers succeeds.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Pickup, error) {
	if cmd.CollectorID == "" {
		return nil, fmt.Errorf("%w: collector is required", ErrBadRequest)
	}
	p, err := s.repo.Get(ctx, cmd.PickupID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusRequested || p.CollectorID != nil {
		if IsTerminal(p.Status) {
			return nil, ErrInvalidTransition
		}
		return nil, ErrAlreadyClaimed
	}
	if p.RequesterID == cmd.CollectorID {
		return nil, ErrOwnPickup
	}
	ok, err := s.repo.UpdateStatus(ctx, p.ID, StatusRequested, StatusAssigned, p.StatusVersion, &cmd.CollectorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyClaimed
	}

	now := s.now()
	p.Status = StatusAssigned
	p.StatusVersion++
	p.CollectorID = &cmd.CollectorID
	p.UpdatedAt = now
	s.record(ctx, p.ID, StatusRequested, StatusAssigned, ActorCollector, &cmd.CollectorID, now)
	s.publish(ctx, events.KindPickupStatus, p.ID, StatusAssigned, cmd.CollectorID, now)
	s.notify(ctx, p.RequesterID, notify.Message{
		Type:  notify.TypePickupAssigned,
		Title: "Collector assigned",
		Body:  "A collector has accepted your pickup request.",
		Data:  map[string]string{"pickup_id": string(p.ID)},
	})
	return p, nil
}

// Advance moves an assigned pickup to its next status on behalf of its collector.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Pickup, error) {
	p, err := s.repo.Get(ctx, cmd.PickupID)
	if err != nil {
		return nil, err
	}
	if p.CollectorID == nil || *p.CollectorID != cmd.CollectorID {
		return nil, ErrNotAssigned
	}
	if cmd.Target == StatusCancelled || !CanTransition(p.Status, cmd.Target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, cmd.Target)
	}
	if cmd.Target == StatusCompleted {
		paid, err := s.deps.Payments.HasCompleted(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, ErrPaymentRequired
		}
	}

	from := p.Status
	ok, err := s.repo.UpdateStatus(ctx, p.ID, from, cmd.Target, p.StatusVersion, p.CollectorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	p.Status = cmd.Target
	p.StatusVersion++
	p.UpdatedAt = now
	s.record(ctx, p.ID, from, cmd.Target, ActorCollector, &cmd.CollectorID, now)
	s.publish(ctx, events.KindPickupStatus, p.ID, cmd.Target, cmd.CollectorID, now)
	switch cmd.Target {
	case StatusEnRoute:
		s.notify(ctx, p.RequesterID, notify.Message{
			Type:  notify.TypePickupEnRoute,
			Title: "Collector on the way",
			Body:  "Your collector is heading to the pickup address.",
			Data:  map[string]string{"pickup_id": string(p.ID)},
		})
	case StatusCompleted:
		s.notify(ctx, p.RequesterID, notify.Message{
			Type:  notify.TypePickupCompleted,
			Title: "Pickup completed",
			Body:  "Thanks for recycling! Your pickup is complete.",
			Data:  map[string]string{"pickup_id": string(p.ID)},
		})
	}
	return p, nil
}

// Cancel is allowed for the requester or the assigned collector from any non-terminal status.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Pickup, error) {
	p, err := s.repo.Get(ctx, cmd.PickupID)
	if err != nil {
		return nil, err
	}
	var actorType string
	switch {
	case p.RequesterID == cmd.ActorID:
		actorType = ActorRequester
	case p.CollectorID != nil && *p.CollectorID == cmd.ActorID:
		actorType = ActorCollector
	default:
		return nil, ErrNotParticipant
	}
	if !CanTransition(p.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusCancelled)
	}

	from := p.Status
	ok, err := s.repo.UpdateStatus(ctx, p.ID, from, StatusCancelled, p.StatusVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	now := s.now()
	p.Status = StatusCancelled
	p.StatusVersion++
	p.CollectorID = nil
	p.UpdatedAt = now
	s.record(ctx, p.ID, from, StatusCancelled, actorType, &cmd.ActorID, now)
	s.publish(ctx, events.KindPickupStatus, p.ID, StatusCancelled, cmd.ActorID, now)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Pickup, error) {
	return s.repo.Get(ctx, id)
}

// ListAvailable returns requested pickups, nearest first when origin is given.
func (s *Service) ListAvailable(ctx context.Context, origin *types.Point, limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	items, err := s.repo.ListByStatus(ctx, StatusRequested, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, len(items))
	for i := range items {
		out[i] = Listing{Pickup: items[i]}
		if origin != nil {
			d := geo.DistanceKm(*origin, items[i].Location)
			out[i].DistanceKm = &d
		}
	}
	if origin != nil {
		geo.SortByDistance(out, func(l Listing) float64 { return *l.DistanceKm })
	}
	return out, nil
}

func (s *Service) ListActiveByCollector(ctx context.Context, collectorID types.ID) ([]Pickup, error) {
	return s.repo.ListByCollector(ctx, collectorID, []Status{StatusAssigned, StatusEnRoute})
}

// ListHistoryByCollector returns the collector's completed pickups, most recent first.
func (s *Service) ListHistoryByCollector(ctx context.Context, collectorID types.ID, limit int) ([]Pickup, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	items, err := s.repo.ListByCollector(ctx, collectorID, []Status{StatusCompleted})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) ListByRequester(ctx context.Context, requesterID types.ID, limit int) ([]Pickup, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByRequester(ctx, requesterID, limit)
}

func (s *Service) Earnings(ctx context.Context, collectorID types.ID) (*Earnings, error) {
	return s.repo.Earnings(ctx, collectorID)
}

func (s *Service) record(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID, at time.Time) {
	err := s.repo.AppendEvent(ctx, &Event{
		PickupID:   id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  at,
	})
	if err != nil {
		s.log.Error().Err(err).Str("pickup_id", string(id)).Msg("append state event failed")
	}
	s.log.Info().
		Str("pickup_id", string(id)).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor_type", actorType).
		Msg("pickup transition")
}

func (s *Service) publish(ctx context.Context, kind events.Kind, id types.ID, status Status, actor types.ID, at time.Time) {
	if s.deps.Events == nil {
		return
	}
	err := s.deps.Events.Publish(ctx, events.Event{
		EntityID: id,
		Kind:     kind,
		Status:   string(status),
		ActorID:  actor,
		At:       at,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("pickup_id", string(id)).Msg("publish event failed")
	}
}

func (s *Service) notify(ctx context.Context, userID types.ID, msg notify.Message) {
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Notify(ctx, userID, msg)
}

// announce pushes new_job to available collectors near the pickup.
func (s *Service) announce(ctx context.Context, p *Pickup) {
	if s.deps.Collectors == nil || s.deps.Notifier == nil {
		return
	}
	nearby, err := s.deps.Collectors.NearbyAvailable(ctx, p.Location, s.deps.MatchRadiusKm)
	if err != nil {
		s.log.Warn().Err(err).Str("pickup_id", string(p.ID)).Msg("nearby collector lookup failed")
		return
	}
	ids := make([]types.ID, 0, len(nearby))
	for _, n := range nearby {
		if n.UserID != p.RequesterID {
			ids = append(ids, n.UserID)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.deps.Notifier.NotifyMany(ctx, ids, notify.Message{
		Type:  notify.TypeNewJob,
		Title: "New pickup nearby",
		Body:  fmt.Sprintf("%s · fee %s", p.Address, p.Fee),
		Data:  map[string]string{"pickup_id": string(p.ID)},
	})
}

func validateCreate(cmd *CreateCommand) error {
	if cmd.RequesterID == "" {
		return fmt.Errorf("%w: requester is required", ErrBadRequest)
	}
	if !cmd.Location.Valid() || cmd.Location.IsZero() {
		return fmt.Errorf("%w: invalid location", ErrBadRequest)
	}
	if len(cmd.WasteTypes) == 0 {
		return fmt.Errorf("%w: at least one waste type is required", ErrBadRequest)
	}
	for _, w := range cmd.WasteTypes {
		if !ValidWasteType(w) {
			return fmt.Errorf("%w: unknown waste type %q", ErrBadRequest, w)
		}
	}
	photos := cmd.Photos[:0:0]
	for _, ph := range cmd.Photos {
		if ph = strings.TrimSpace(ph); ph != "" {
			photos = append(photos, ph)
		}
	}
	if len(photos) == 0 {
		return fmt.Errorf("%w: at least one photo is required", ErrBadRequest)
	}
	cmd.Photos = photos
	return nil
}

func dedupeWasteTypes(in []WasteType) []WasteType {
	seen := make(map[WasteType]struct{}, len(in))
	out := make([]WasteType, 0, len(in))
	for _, w := range in {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
