package handler

import (
	"strings"

	"dealdesk/internal/review/models"
	"dealdesk/internal/review/service"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

// RegisterRequest is the body of POST /subjects.
type RegisterRequest struct {
	CounterpartyID string       `json:"counterparty_id"`
	Title          string       `json:"title"`
	Terms          models.Terms `json:"terms"`
	Deliverables   string       `json:"deliverables"`

	parsedCounterparty id.ActorID
}

// Validate implements httputil.Validatable. Field rules beyond parsing are
// enforced by the facts constructor.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	counterparty, err := id.ParseActorID(strings.TrimSpace(r.CounterpartyID))
	if err != nil {
		return err
	}
	r.parsedCounterparty = counterparty
	r.Terms.Currency = strings.ToUpper(strings.TrimSpace(r.Terms.Currency))
	return nil
}

func (r *RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{
		CounterpartyID: r.parsedCounterparty,
		Title:          r.Title,
		Terms:          r.Terms,
		Deliverables:   r.Deliverables,
	}
}

// StatusRequest is the body of POST /subjects/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

func (r *StatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Status = strings.TrimSpace(r.Status)
	if !models.LifecycleStatus(r.Status).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be draft, active or cancelled")
	}
	return nil
}

// DecisionRequest is the body of POST /subjects/{id}/decision.
type DecisionRequest struct {
	Outcome      string `json:"outcome"`
	ReviewerNote string `json:"reviewer_note"`
	InternalNote string `json:"internal_note"`

	parsedOutcome models.Decision
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	outcome := models.Decision(strings.TrimSpace(r.Outcome))
	if !outcome.IsOutcome() {
		return dErrors.New(dErrors.CodeValidation, "outcome must be approved, approved_with_conditions or rejected")
	}
	r.parsedOutcome = outcome
	return nil
}

func (r *DecisionRequest) ParsedOutcome() models.Decision {
	return r.parsedOutcome
}

// ScoreRequest is the body of PUT /subjects/{id}/score.
type ScoreRequest struct {
	Total     *float64          `json:"total"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

func (r *ScoreRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Total == nil {
		return dErrors.New(dErrors.CodeValidation, "total is required")
	}
	return nil
}

func (r *ScoreRequest) Input() service.ScoreInput {
	return service.ScoreInput{Total: *r.Total, Breakdown: r.Breakdown}
}

// OverrideRequest is the body of POST /subjects/{id}/score/override.
// An empty justification is left for the engine to reject.
type OverrideRequest struct {
	Value         *float64 `json:"value"`
	Justification string   `json:"justification"`
}

func (r *OverrideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Value == nil {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}
