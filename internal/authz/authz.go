// Package authz turns an authenticated caller into explicit capability objects.
//
// Every engine operation takes one of these instead of trusting an implicit
// credential. A ReviewerContext can only be minted for a principal holding the
// reviewer role; a PartyContext carries the caller so the engine can check
// ownership against the subject itself. The zero value of each capability is
// invalid, so a capability cannot be conjured with a struct literal.
package authz

import (
	"context"
	"slices"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

// Role is a coarse permission asserted by the identity provider.
type Role string

const (
	RoleReviewer Role = "reviewer"
	RoleScorer   Role = "scorer"
)

// Principal is the authenticated caller.
type Principal struct {
	ActorID id.ActorID
	Roles   []Role
}

// HasRole reports whether the principal holds r.
func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}

// FromContext reads the principal set by the auth middleware.
func FromContext(ctx context.Context) (Principal, error) {
	actor := requestcontext.ActorID(ctx)
	if actor.IsNil() {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	raw := requestcontext.Roles(ctx)
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, Role(r))
	}
	return Principal{ActorID: actor, Roles: roles}, nil
}

// ReviewerContext proves the caller holds the reviewer role.
type ReviewerContext struct {
	actor id.ActorID
}

// Reviewer mints a ReviewerContext or fails with forbidden.
func Reviewer(p Principal) (ReviewerContext, error) {
	if p.ActorID.IsNil() {
		return ReviewerContext{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !p.HasRole(RoleReviewer) {
		return ReviewerContext{}, dErrors.New(dErrors.CodeForbidden, "reviewer role required")
	}
	return ReviewerContext{actor: p.ActorID}, nil
}

func (c ReviewerContext) Actor() id.ActorID { return c.actor }

// Valid is false for the zero value.
func (c ReviewerContext) Valid() bool { return !c.actor.IsNil() }

// PartyContext is an authenticated caller acting as a possible party.
// Whether they are the owner or counterparty of a given subject is decided
// by the engine against the subject's facts.
type PartyContext struct {
	actor    id.ActorID
	reviewer bool
}

// Party mints a PartyContext for any authenticated principal.
func Party(p Principal) (PartyContext, error) {
	if p.ActorID.IsNil() {
		return PartyContext{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return PartyContext{actor: p.ActorID, reviewer: p.HasRole(RoleReviewer)}, nil
}

func (c PartyContext) Actor() id.ActorID { return c.actor }

// IsReviewer reports whether the caller may also see reviewer-only fields.
func (c PartyContext) IsReviewer() bool { return c.reviewer }

func (c PartyContext) Valid() bool { return !c.actor.IsNil() }

// ScorerContext proves the caller is the external scoring collaborator.
type ScorerContext struct {
	actor id.ActorID
}

// Scorer mints a ScorerContext or fails with forbidden.
func Scorer(p Principal) (ScorerContext, error) {
	if p.ActorID.IsNil() {
		return ScorerContext{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !p.HasRole(RoleScorer) {
		return ScorerContext{}, dErrors.New(dErrors.CodeForbidden, "scorer role required")
	}
	return ScorerContext{actor: p.ActorID}, nil
}

func (c ScorerContext) Actor() id.ActorID { return c.actor }

func (c ScorerContext) Valid() bool { return !c.actor.IsNil() }

// ErrInvalidCapability is returned by services handed a zero-value capability.
func ErrInvalidCapability() error {
	return dErrors.New(dErrors.CodeUnauthorized, "missing caller capability")
}

// ReviewerFromContext mints a ReviewerContext for the request's principal.
func ReviewerFromContext(ctx context.Context) (ReviewerContext, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return ReviewerContext{}, err
	}
	return Reviewer(p)
}

// PartyFromContext mints a PartyContext for the request's principal.
func PartyFromContext(ctx context.Context) (PartyContext, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return PartyContext{}, err
	}
	return Party(p)
}

// ScorerFromContext mints a ScorerContext for the request's principal.
func ScorerFromContext(ctx context.Context) (ScorerContext, error) {
	p, err := FromContext(ctx)
	if err != nil {
		return ScorerContext{}, err
	}
	return Scorer(p)
}
