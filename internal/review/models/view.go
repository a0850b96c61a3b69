package models

import (
	"time"

	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
)

// View is a subject as shown to one caller. Parties never see the internal
// note, override justifications or the scoring recommendation.
type View struct {
	ID             id.SubjectID    `json:"id"`
	OwnerID        id.ActorID      `json:"owner_id"`
	CounterpartyID id.ActorID      `json:"counterparty_id"`
	Title          string          `json:"title"`
	Terms          Terms           `json:"terms"`
	Deliverables   string          `json:"deliverables,omitempty"`
	Status         LifecycleStatus `json:"status"`

	Decision              Decision    `json:"decision"`
	DecidedAt             *time.Time  `json:"decided_at,omitempty"`
	DecidedBy             *id.ActorID `json:"decided_by,omitempty"`
	ReviewerNote          string      `json:"reviewer_note,omitempty"`
	InternalNote          string      `json:"internal_note,omitempty"`
	SubjectNote           string      `json:"subject_note,omitempty"`
	ConditionsCompletedAt *time.Time  `json:"conditions_completed_at,omitempty"`
	ViewedDecisionAt      *time.Time  `json:"viewed_decision_at,omitempty"`

	Score          *ScoreView              `json:"score,omitempty"`
	Recommendation *scoring.Recommendation `json:"recommendation,omitempty"`
	Appeals        []Appeal                `json:"appeals"`
	Version        int64                   `json:"version"`
}

// ScoreView is the current score with its effective total.
type ScoreView struct {
	ID        id.ScoreID        `json:"id"`
	Total     float64           `json:"total"`
	Effective float64           `json:"effective"`
	Breakdown scoring.Breakdown `json:"breakdown"`
	Override  *scoring.Override `json:"override,omitempty"`
}

// ViewFor builds the view. adapter may be nil; the recommendation is then
// omitted.
func (s *Subject) ViewFor(reviewer bool, score *scoring.Score, adapter scoring.Adapter) View {
	v := View{
		ID:                    s.Facts.ID,
		OwnerID:               s.Facts.OwnerID,
		CounterpartyID:        s.Facts.CounterpartyID,
		Title:                 s.Facts.Title,
		Terms:                 s.Facts.Terms,
		Deliverables:          s.Facts.Deliverables,
		Status:                s.Facts.Status,
		Decision:              s.Decision,
		DecidedAt:             s.DecidedAt,
		ReviewerNote:          s.ReviewerNote,
		SubjectNote:           s.SubjectNote,
		ConditionsCompletedAt: s.ConditionsCompletedAt,
		ViewedDecisionAt:      s.ViewedDecisionAt,
		Appeals:               append([]Appeal{}, s.Appeals...),
		Version:               s.Version,
	}
	if !s.DecidedBy.IsNil() {
		decidedBy := s.DecidedBy
		v.DecidedBy = &decidedBy
	}
	if reviewer {
		v.InternalNote = s.InternalNote
	}

	if score != nil {
		sv := &ScoreView{
			ID:        score.ID,
			Total:     score.Total,
			Effective: scoring.Effective(score, s.Override),
			Breakdown: score.Breakdown,
		}
		if s.Override != nil && s.Override.ScoreID == score.ID {
			o := *s.Override
			if !reviewer {
				o.Justification = ""
			}
			sv.Override = &o
		}
		v.Score = sv
		if reviewer && adapter != nil {
			rec := adapter.Recommend(sv.Effective)
			v.Recommendation = &rec
		}
	}
	return v
}
