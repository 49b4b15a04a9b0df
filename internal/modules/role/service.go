// README: Role gate decides which roles a principal may act as and switches between them.
package role

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"kurs/internal/apperr"
	"kurs/internal/types"
)

var ErrNotGranted = fmt.Errorf("%w: role not granted", apperr.ErrForbidden)

type Grants interface {
	ListGrants(ctx context.Context, userID types.ID) ([]Role, error)
	Grant(ctx context.Context, userID types.ID, r Role) error
}

type ActingRoles interface {
	Get(ctx context.Context, userID types.ID) (Role, error)
	Set(ctx context.Context, userID types.ID, r Role) error
}

type CollectorAvailability interface {
	SetOffline(ctx context.Context, userID types.ID) error
}

type Service struct {
	grants     Grants
	acting     ActingRoles
	collectors CollectorAvailability
	log        zerolog.Logger
}

func NewService(grants Grants, acting ActingRoles, collectors CollectorAvailability, log zerolog.Logger) *Service {
	return &Service{
		grants:     grants,
		acting:     acting,
		collectors: collectors,
		log:        log.With().Str("module", "role").Logger(),
	}
}

// AuthorizedRoles is requester followed by the persisted grants in a fixed order.
func (s *Service) AuthorizedRoles(ctx context.Context, principal types.ID) ([]Role, error) {
	granted, err := s.grants.ListGrants(ctx, principal)
	if err != nil {
		return nil, err
	}
	roles := []Role{Requester}
	for _, r := range []Role{Collector, Staff} {
		if slices.Contains(granted, r) {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// ActingRole returns requested when authorized, otherwise requester with Redirect set.
func ActingRole(authorized []Role, requested Role) Decision {
	if requested == "" {
		return Decision{Role: Requester}
	}
	if slices.Contains(authorized, requested) {
		return Decision{Role: requested}
	}
	return Decision{Role: Requester, Redirect: true}
}

// Resolve builds the session for principal from its grants and stored acting role.
// A stored role that is no longer granted is reset to requester, and a revoked
// collector is taken offline so it stops receiving jobs.
func (s *Service) Resolve(ctx context.Context, principal types.ID) (Session, error) {
	authorized, err := s.AuthorizedRoles(ctx, principal)
	if err != nil {
		return Session{}, err
	}
	stored, err := s.acting.Get(ctx, principal)
	if err != nil {
		return Session{}, err
	}
	d := ActingRole(authorized, stored)
	if d.Redirect {
		s.log.Info().Str("principal_id", string(principal)).Str("stale_role", string(stored)).Msg("acting role reset to requester")
		if stored == Collector && s.collectors != nil {
			if err := s.collectors.SetOffline(ctx, principal); err != nil {
				return Session{}, err
			}
		}
		if err := s.acting.Set(ctx, principal, Requester); err != nil {
			return Session{}, err
		}
	}
	return Session{PrincipalID: principal, Granted: authorized, Acting: d.Role, Redirected: d.Redirect}, nil
}

// SwitchRole changes the acting role. An unauthorized target leaves all state untouched.
func (s *Service) SwitchRole(ctx context.Context, sess Session, target Role) (Session, error) {
	authorized, err := s.AuthorizedRoles(ctx, sess.PrincipalID)
	if err != nil {
		return sess, err
	}
	if !slices.Contains(authorized, target) {
		return sess, fmt.Errorf("%w: %s", ErrNotGranted, target)
	}
	if sess.Acting == Collector && target != Collector && s.collectors != nil {
		if err := s.collectors.SetOffline(ctx, sess.PrincipalID); err != nil {
			return sess, err
		}
	}
	if err := s.acting.Set(ctx, sess.PrincipalID, target); err != nil {
		return sess, err
	}
	s.log.Info().
		Str("principal_id", string(sess.PrincipalID)).
		Str("from", string(sess.Acting)).
		Str("to", string(target)).
		Msg("acting role switched")
	return Session{PrincipalID: sess.PrincipalID, Granted: authorized, Acting: target}, nil
}

// Grant records an approved role. Requester is implicit and never stored.
func (s *Service) Grant(ctx context.Context, principal types.ID, r Role) error {
	if _, err := Parse(string(r)); err != nil {
		return err
	}
	if r == Requester {
		return nil
	}
	return s.grants.Grant(ctx, principal, r)
}
