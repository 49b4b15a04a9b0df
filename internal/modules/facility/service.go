// README: Facility directory: filter by type, nearest first around a point.
package facility

import (
	"context"
	"fmt"

	"kurs/internal/apperr"
	"kurs/internal/geo"
	"kurs/internal/types"
)

var (
	ErrNotFound    = fmt.Errorf("%w: facility not found", apperr.ErrNotFound)
	ErrBadType     = fmt.Errorf("%w: unknown facility type", apperr.ErrValidation)
	ErrBadLocation = fmt.Errorf("%w: invalid coordinates", apperr.ErrValidation)
	ErrBadRadius   = fmt.Errorf("%w: radius must be positive", apperr.ErrValidation)
)

type Repository interface {
	Get(ctx context.Context, id types.ID) (*Facility, error)
	List(ctx context.Context, typ Type, limit int) ([]Facility, error)
}

const (
	defaultListLimit = 50
	// scanLimit bounds how many rows a radius query ranks in memory.
	scanLimit = 1000
)

type Query struct {
	Type     Type
	Origin   *types.Point
	RadiusKm float64
	Limit    int
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Facility, error) {
	return s.repo.Get(ctx, id)
}

// List returns facilities by name, or nearest first when q.Origin is set.
// Facilities without coordinates are dropped from distance queries.
func (s *Service) List(ctx context.Context, q Query) ([]Listing, error) {
	if q.Type != "" && !ValidType(q.Type) {
		return nil, fmt.Errorf("%w %q", ErrBadType, q.Type)
	}
	if q.RadiusKm < 0 {
		return nil, ErrBadRadius
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Origin == nil {
		items, err := s.repo.List(ctx, q.Type, q.Limit)
		if err != nil {
			return nil, err
		}
		out := make([]Listing, len(items))
		for i := range items {
			out[i] = Listing{Facility: items[i]}
		}
		return out, nil
	}
	if !q.Origin.Valid() {
		return nil, ErrBadLocation
	}

	items, err := s.repo.List(ctx, q.Type, scanLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(items))
	for i := range items {
		if items[i].Location == nil {
			continue
		}
		d := geo.DistanceKm(*q.Origin, *items[i].Location)
		if q.RadiusKm > 0 && d > q.RadiusKm {
			continue
		}
		out = append(out, Listing{Facility: items[i], DistanceKm: &d})
	}
	geo.SortByDistance(out, func(l Listing) float64 { return *l.DistanceKm })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
