// Package maps wraps the Google Maps Geocoding API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"kurs/internal/types"
)

// Geocoder resolves coordinates to a street address.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a Geocoder with the given API key. Extra client options
// (for example a base URL in tests) are appended.
func NewGeocoder(apiKey string, opts ...maps.ClientOption) (*Geocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// ReverseGeocode returns the best formatted address for p.
func (g *Geocoder) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: "id",
		Region:   "ID",
	})
	if err != nil {
		return "", fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no address found for %.6f,%.6f", p.Lat, p.Lng)
	}
	return results[0].FormattedAddress, nil
}
