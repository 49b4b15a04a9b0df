// README: Roles, grants and the per-request session value.
package role

import (
	"fmt"
	"slices"

	"kurs/internal/apperr"
	"kurs/internal/types"
)

type Role string

const (
	Requester Role = "requester"
	Collector Role = "collector"
	Staff     Role = "staff"
)

// ErrUnknownRole is returned by Parse.
var ErrUnknownRole = fmt.Errorf("%w: unknown role", apperr.ErrValidation)

func Parse(s string) (Role, error) {
	switch r := Role(s); r {
	case Requester, Collector, Staff:
		return r, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownRole, s)
}

// Session is the caller's identity for one request. It is built by the HTTP
// layer and passed explicitly to operations that depend on the acting role.
type Session struct {
	PrincipalID types.ID `json:"principal_id"`
	Granted     []Role   `json:"granted"`
	Acting      Role     `json:"acting"`
	// Redirected is set when a stale acting role was reset to requester.
	Redirected bool `json:"redirected,omitempty"`
}

func (s Session) Has(r Role) bool {
	return slices.Contains(s.Granted, r)
}

func (s Session) IsActing(r Role) bool {
	return s.Acting == r && s.Has(r)
}

// Decision is the outcome of resolving a requested acting role.
type Decision struct {
	Role     Role
	Redirect bool
}
