// README: Collector availability and last known position.
package collector

import (
	"time"

	"kurs/internal/types"
)

type Availability string

const (
	Available Availability = "available"
	Offline   Availability = "offline"
)

type Collector struct {
	UserID       types.ID     `json:"user_id"`
	Availability Availability `json:"availability"`
	VehicleType  *string      `json:"vehicle_type,omitempty"`
	LicensePlate *string      `json:"license_plate,omitempty"`
	Location     *types.Point `json:"location,omitempty"`
	LastSeenAt   *time.Time   `json:"last_seen_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Nearby is an available collector found by a radius search.
type Nearby struct {
	UserID     types.ID
	DistanceKm float64
}
