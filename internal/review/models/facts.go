package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	pstrings "dealdesk/pkg/platform/strings"
)

const (
	maxTitleLength        = 200
	maxDeliverablesLength = 4000
)

// Terms are the monetary terms of a deal, in minor units.
type Terms struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// Facts are the subject fields written by the CRUD collaborator. The review
// engine reads them to authorize parties; it never changes them except for
// the lifecycle status seam.
//
// Invariants:
//   - Owner and counterparty are set and distinct
//   - Currency is a three-letter upper-case code
//   - AmountMinor is non-negative
type Facts struct {
	ID             id.SubjectID    `json:"id"`
	OwnerID        id.ActorID      `json:"owner_id"`
	CounterpartyID id.ActorID      `json:"counterparty_id"`
	Title          string          `json:"title"`
	Terms          Terms           `json:"terms"`
	Deliverables   string          `json:"deliverables,omitempty"`
	Status         LifecycleStatus `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewFacts validates and builds the facts for a new subject in draft status.
func NewFacts(subjectID id.SubjectID, owner, counterparty id.ActorID, title string, terms Terms, deliverables string, now time.Time) (*Facts, error) {
	title = strings.TrimSpace(title)
	if owner.IsNil() || counterparty.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner and counterparty are required")
	}
	if owner == counterparty {
		return nil, dErrors.New(dErrors.CodeValidation, "owner and counterparty must differ")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if !pstrings.Storable(title) || !pstrings.Storable(deliverables) {
		return nil, dErrors.New(dErrors.CodeValidation, "title and deliverables must not contain invalid characters")
	}
	if utf8.RuneCountInString(deliverables) > maxDeliverablesLength {
		return nil, dErrors.New(dErrors.CodeValidation, "deliverables are too long")
	}
	if terms.AmountMinor < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	if !validCurrency(terms.Currency) {
		return nil, dErrors.New(dErrors.CodeValidation, "currency must be a three-letter ISO code")
	}
	return &Facts{
		ID:             subjectID,
		OwnerID:        owner,
		CounterpartyID: counterparty,
		Title:          title,
		Terms:          terms,
		Deliverables:   strings.TrimSpace(deliverables),
		Status:         StatusDraft,
		CreatedAt:      now.UTC(),
	}, nil
}

func (f *Facts) IsOwner(actor id.ActorID) bool        { return f.OwnerID == actor }
func (f *Facts) IsCounterparty(actor id.ActorID) bool { return f.CounterpartyID == actor }

// IsParty reports whether actor is owner or counterparty.
func (f *Facts) IsParty(actor id.ActorID) bool {
	return f.IsOwner(actor) || f.IsCounterparty(actor)
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
