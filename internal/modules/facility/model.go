// README: Drop-off facilities (TPS and waste banks) shown on the map and used by deposits.
package facility

import (
	"time"

	"kurs/internal/types"
)

type Type string

const (
	TypeTPS       Type = "tps"
	TypeWasteBank Type = "waste_bank"
)

func ValidType(t Type) bool {
	return t == TypeTPS || t == TypeWasteBank
}

// OpeningHours is one day of the weekly schedule, keyed by lowercase English weekday.
type OpeningHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

type Facility struct {
	ID           types.ID                `json:"id"`
	Name         string                  `json:"name"`
	Type         Type                    `json:"type"`
	Address      *string                 `json:"address"`
	Location     *types.Point            `json:"location"`
	Contact      *string                 `json:"contact"`
	OpeningHours map[string]OpeningHours `json:"opening_hours"`
	CreatedAt    time.Time               `json:"created_at"`
}

type Listing struct {
	Facility
	DistanceKm *float64 `json:"distance_km,omitempty"`
}
