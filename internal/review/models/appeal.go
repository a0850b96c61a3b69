package models

import (
	"time"

	id "dealdesk/pkg/domain"
)

// MinAppealReasonLength is counted in characters after trimming.
const MinAppealReasonLength = 50

// Appeal is the projection of an appeal_filed entry and, once resolved, its
// appeal_resolved entry.
type Appeal struct {
	ID                   id.AppealID  `json:"id"`
	SubjectID            id.SubjectID `json:"subject_id"`
	Appellant            id.ActorID   `json:"appellant"`
	Reason               string       `json:"reason"`
	Documents            []string     `json:"documents"`
	OriginalDecision     Decision     `json:"original_decision"`
	OriginalReviewerNote string       `json:"original_reviewer_note,omitempty"`
	OriginalDecidedAt    time.Time    `json:"original_decided_at"`
	Status               AppealStatus `json:"status"`
	FiledAt              time.Time    `json:"filed_at"`

	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     id.ActorID `json:"resolved_by,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
	NewDecision    Decision   `json:"new_decision,omitempty"`
}

func (a *Appeal) IsPending() bool { return a.Status == AppealSubmitted }
