// README: Pickup aggregate, waste types and the status transition table.
package pickup

import (
	"time"

	"kurs/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusRequested Status = "requested"
	StatusAssigned  Status = "assigned"
	StatusEnRoute   Status = "en_route"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type WasteType string

const (
	WasteOrganic    WasteType = "organic"
	WastePlastic    WasteType = "plastic"
	WastePaper      WasteType = "paper"
	WasteMetal      WasteType = "metal"
	WasteGlass      WasteType = "glass"
	WasteElectronic WasteType = "electronic"
	WasteHazardous  WasteType = "hazardous"
	WasteOther      WasteType = "other"
)

var wasteTypes = map[WasteType]struct{}{
	WasteOrganic:    {},
	WastePlastic:    {},
	WastePaper:      {},
	WasteMetal:      {},
	WasteGlass:      {},
	WasteElectronic: {},
	WasteHazardous:  {},
	WasteOther:      {},
}

func ValidWasteType(w WasteType) bool {
	_, ok := wasteTypes[w]
	return ok
}

const (
	ActorRequester = "requester"
	ActorCollector = "collector"
	ActorSystem    = "system"
)

type Pickup struct {
	ID             types.ID    `json:"id"`
	RequesterID    types.ID    `json:"requester_id"`
	CollectorID    *types.ID   `json:"collector_id"`
	Status         Status      `json:"status"`
	StatusVersion  int         `json:"status_version"`
	Address        string      `json:"address"`
	Location       types.Point `json:"location"`
	WasteTypes     []WasteType `json:"waste_types"`
	Photos         []string    `json:"photos"`
	Notes          *string     `json:"notes,omitempty"`
	VolumeEstimate *string     `json:"volume_estimate,omitempty"`
	ScheduledAt    *time.Time  `json:"scheduled_at,omitempty"`
	Fee            types.Money `json:"fee"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Listing is a pickup annotated with its distance from the viewing collector.
type Listing struct {
	Pickup
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type Event struct {
	ID         int64
	PickupID   types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// Earnings sums the fees of a collector's completed pickups.
type Earnings struct {
	CollectorID types.ID    `json:"collector_id"`
	Completed   int         `json:"completed"`
	Total       types.Money `json:"total"`
}

// AllowedTransitions maps each non-terminal status to its single successor plus cancelled.
var AllowedTransitions = map[Status][]Status{
	StatusRequested: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusEnRoute, StatusCancelled},
	StatusEnRoute:   {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

var progression = []Status{StatusRequested, StatusAssigned, StatusEnRoute, StatusCompleted}

// StatusIndex is the progress position for trackers; -1 for cancelled or unknown.
func StatusIndex(s Status) int {
	for i, p := range progression {
		if p == s {
			return i
		}
	}
	return -1
}
