// README: Payment intent aggregate and provider status normalisation.
package payment

import (
	"strings"
	"time"

	"kurs/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type Intent struct {
	ID           types.ID    `json:"id"`
	PickupID     types.ID    `json:"pickup_id"`
	Amount       types.Money `json:"amount"`
	ExternalID   string      `json:"external_id"`
	ProviderID   string      `json:"provider_id"`
	QRString     string      `json:"qr_string"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	SupersededAt *time.Time  `json:"superseded_at,omitempty"`
	CheckedAt    *time.Time  `json:"-"`
}

// Outcome describes what Reconcile did with a provider notification.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeUnknownReference Outcome = "unknown_reference"
	OutcomeIgnored          Outcome = "ignored"
)

// NormalizeStatus maps provider vocabulary onto intent status. Anything that is
// not a success value returns "".
func NormalizeStatus(reported string) Status {
	switch strings.ToUpper(strings.TrimSpace(reported)) {
	case "SUCCEEDED", "COMPLETED", "PAID":
		return StatusCompleted
	}
	return ""
}
