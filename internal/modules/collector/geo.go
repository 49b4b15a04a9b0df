// README: Redis GEO index of available collectors.
package collector

import (
	"context"

	"github.com/redis/go-redis/v9"

	"kurs/internal/types"
)

const collectorGeoKey = "kurs:collectors:available"

type GeoIndex struct {
	redis *redis.Client
}

func NewGeoIndex(redis *redis.Client) *GeoIndex {
	return &GeoIndex{redis: redis}
}

func (g *GeoIndex) Add(ctx context.Context, userID types.ID, p types.Point) error {
	return g.redis.GeoAdd(ctx, collectorGeoKey, &redis.GeoLocation{
		Name:      string(userID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, userID types.ID) error {
	return g.redis.ZRem(ctx, collectorGeoKey, string(userID)).Err()
}

func (g *GeoIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]Nearby, error) {
	locs, err := g.redis.GeoSearchLocation(ctx, collectorGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Nearby, len(locs))
	for i, l := range locs {
		out[i] = Nearby{UserID: types.ID(l.Name), DistanceKm: l.Dist}
	}
	return out, nil
}
