// README: Provider callback payload parsing.
package payment

import (
	"encoding/json"
	"fmt"

	"kurs/internal/apperr"
)

// Notification is the part of a provider callback reconciliation cares about.
type Notification struct {
	ReferenceID string
	Status      string
}

type callbackFields struct {
	ReferenceID string `json:"reference_id"`
	ExternalID  string `json:"external_id"`
	Status      string `json:"status"`
}

// ParseNotification accepts flat payloads and payloads wrapped in "data".
func ParseNotification(body []byte) (Notification, error) {
	var envelope struct {
		callbackFields
		Data *callbackFields `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Notification{}, fmt.Errorf("%w: malformed callback: %v", apperr.ErrValidation, err)
	}
	f := envelope.callbackFields
	if envelope.Data != nil {
		f = *envelope.Data
	}
	n := Notification{ReferenceID: f.ReferenceID, Status: f.Status}
	if n.ReferenceID == "" {
		n.ReferenceID = f.ExternalID
	}
	if NormalizeStatus(n.Status) == StatusCompleted && n.ReferenceID == "" {
		return n, fmt.Errorf("%w: reference id missing", apperr.ErrValidation)
	}
	return n, nil
}
