package handler

import (
	"strings"

	"dealdesk/internal/review/models"
	dErrors "dealdesk/pkg/domain-errors"
)

const maxDocuments = 20

// FileRequest is the body of POST /subjects/{id}/appeals. Reason length is
// checked by the engine so the error carries its own code.
type FileRequest struct {
	Reason    string   `json:"reason"`
	Documents []string `json:"documents"`
}

func (r *FileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Documents) > maxDocuments {
		return dErrors.New(dErrors.CodeValidation, "at most 20 documents may be attached")
	}
	return nil
}

// ResolveRequest is the body of POST /subjects/{id}/appeals/{appealID}/resolve.
type ResolveRequest struct {
	Outcome      string `json:"outcome"`
	ReviewerNote string `json:"reviewer_note"`
	NewDecision  string `json:"new_decision"`

	parsedOutcome     models.AppealStatus
	parsedNewDecision models.Decision
}

func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	outcome := models.AppealStatus(strings.TrimSpace(r.Outcome))
	if !outcome.IsResolution() {
		return dErrors.New(dErrors.CodeValidation, "outcome must be upheld or overturned")
	}
	newDecision := models.Decision(strings.TrimSpace(r.NewDecision))
	if outcome == models.AppealOverturned && !newDecision.IsOutcome() {
		return dErrors.New(dErrors.CodeValidation, "new_decision must be approved, approved_with_conditions or rejected")
	}
	if outcome == models.AppealUpheld && newDecision != "" {
		return dErrors.New(dErrors.CodeValidation, "new_decision is only accepted with an overturn")
	}
	r.parsedOutcome = outcome
	r.parsedNewDecision = newDecision
	return nil
}

func (r *ResolveRequest) ParsedOutcome() models.AppealStatus { return r.parsedOutcome }

func (r *ResolveRequest) ParsedNewDecision() models.Decision { return r.parsedNewDecision }
