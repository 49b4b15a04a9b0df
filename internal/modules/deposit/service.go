// README: Deposit service records staff-verified drop-offs and notifies the depositor.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kurs/internal/apperr"
	"kurs/internal/modules/facility"
	"kurs/internal/modules/notify"
	"kurs/internal/modules/pickup"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

var (
	ErrNotStaff     = fmt.Errorf("%w: only acting staff can record deposits", apperr.ErrForbidden)
	ErrBadWeight    = fmt.Errorf("%w: weight must be positive", apperr.ErrValidation)
	ErrBadWasteType = fmt.Errorf("%w: unknown waste type", apperr.ErrValidation)
	ErrNoDepositor  = fmt.Errorf("%w: depositor is required", apperr.ErrValidation)
	ErrSelfDeposit  = fmt.Errorf("%w: staff cannot verify their own deposit", apperr.ErrValidation)
	ErrBadFacility  = fmt.Errorf("%w: facility is not a registered waste bank", apperr.ErrValidation)
)

type Repository interface {
	Create(ctx context.Context, d *Deposit) error
	ListByDepositor(ctx context.Context, depositorID types.ID, limit int) ([]Deposit, error)
	ListByStaff(ctx context.Context, staffID types.ID, limit int) ([]Deposit, error)
}

type Facilities interface {
	Get(ctx context.Context, id types.ID) (*facility.Facility, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID types.ID, msg notify.Message)
}

type Service struct {
	repo       Repository
	facilities Facilities
	notifier   Notifier
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, facilities Facilities, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		facilities: facilities,
		notifier:   notifier,
		log:        log.With().Str("module", "deposit").Logger(),
		now:        time.Now,
	}
}

const defaultListLimit = 50

type RecordCommand struct {
	DepositorID types.ID
	WasteType   string
	WeightKg    float64
	Photos      []string
	Notes       string
	FacilityID  string
}

// Record appends a verified deposit on behalf of the acting staff member in sess.
func (s *Service) Record(ctx context.Context, sess role.Session, cmd RecordCommand) (*Deposit, error) {
	if !sess.IsActing(role.Staff) {
		return nil, ErrNotStaff
	}
	if cmd.DepositorID == "" {
		return nil, ErrNoDepositor
	}
	if cmd.DepositorID == sess.PrincipalID {
		return nil, ErrSelfDeposit
	}
	if cmd.WeightKg <= 0 || math.IsNaN(cmd.WeightKg) || math.IsInf(cmd.WeightKg, 0) {
		return nil, ErrBadWeight
	}
	if !pickup.ValidWasteType(pickup.WasteType(cmd.WasteType)) {
		return nil, fmt.Errorf("%w %q", ErrBadWasteType, cmd.WasteType)
	}
	cmd.FacilityID = strings.TrimSpace(cmd.FacilityID)
	if err := s.checkFacility(ctx, cmd.FacilityID); err != nil {
		return nil, err
	}

	d := &Deposit{
		ID:          types.ID(uuid.NewString()),
		DepositorID: cmd.DepositorID,
		VerifiedBy:  sess.PrincipalID,
		FacilityID:  optional(cmd.FacilityID),
		WasteType:   cmd.WasteType,
		WeightKg:    cmd.WeightKg,
		Photos:      nonEmpty(cmd.Photos),
		Status:      StatusVerified,
		Notes:       optional(cmd.Notes),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("deposit_id", string(d.ID)).
		Str("depositor_id", string(d.DepositorID)).
		Str("staff_id", string(d.VerifiedBy)).
		Float64("weight_kg", d.WeightKg).
		Msg("deposit recorded")

	if s.notifier != nil {
		s.notifier.Notify(ctx, d.DepositorID, notify.Message{
			Type:  notify.TypeDepositVerified,
			Title: "Deposit verified",
			Body:  fmt.Sprintf("%.1f kg of %s recorded at the waste bank.", d.WeightKg, d.WasteType),
			Data:  map[string]string{"deposit_id": string(d.ID)},
		})
	}
	return d, nil
}

// checkFacility accepts an empty id; anything else must name a waste bank.
func (s *Service) checkFacility(ctx context.Context, id string) error {
	if id == "" || s.facilities == nil {
		return nil
	}
	f, err := s.facilities.Get(ctx, types.ID(id))
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrBadFacility, id)
	}
	if err != nil {
		return err
	}
	if f.Type != facility.TypeWasteBank {
		return fmt.Errorf("%w: %s is a %s", ErrBadFacility, id, f.Type)
	}
	return nil
}

func (s *Service) ListByDepositor(ctx context.Context, depositorID types.ID, limit int) ([]Deposit, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByDepositor(ctx, depositorID, limit)
}

// ListByStaff lists deposits verified by the acting staff member.
func (s *Service) ListByStaff(ctx context.Context, sess role.Session, limit int) ([]Deposit, error) {
	if !sess.IsActing(role.Staff) {
		return nil, ErrNotStaff
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByStaff(ctx, sess.PrincipalID, limit)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
