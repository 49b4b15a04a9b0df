// README: Waste bank deposit, an append-only staff-verified record.
package deposit

import (
	"time"

	"kurs/internal/types"
)

const StatusVerified = "verified"

type Deposit struct {
	ID          types.ID  `json:"id"`
	DepositorID types.ID  `json:"depositor_id"`
	VerifiedBy  types.ID  `json:"verified_by"`
	FacilityID  *string   `json:"facility_id,omitempty"`
	WasteType   string    `json:"waste_type"`
	WeightKg    float64   `json:"weight_kg"`
	Photos      []string  `json:"photos"`
	Status      string    `json:"status"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
