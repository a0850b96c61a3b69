// Package notify carries outbound notification events produced by engine
// mutations. Events are handed to a Notifier inside the same transaction as
// the ledger append; delivery to people is someone else's job.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "dealdesk/pkg/domain"
)

// Kind names the notification.
type Kind string

const (
	KindDecisionRecorded    Kind = "decision_recorded"
	KindConditionsCompleted Kind = "conditions_completed"
	KindAppealResolved      Kind = "appeal_resolved"
)

// Event is one notification addressed to one recipient.
type Event struct {
	ID         uuid.UUID    `json:"id"`
	Kind       Kind         `json:"kind"`
	SubjectID  id.SubjectID `json:"subject_id"`
	Recipient  id.ActorID   `json:"recipient"`
	Decision   string       `json:"decision,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func NewEvent(kind Kind, subject id.SubjectID, recipient id.ActorID, decision, summary string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		SubjectID:  subject,
		Recipient:  recipient,
		Decision:   decision,
		Summary:    summary,
		OccurredAt: at.UTC(),
	}
}

// Notifier accepts events for later delivery. Implementations honor a
// transaction carried on ctx.
type Notifier interface {
	Notify(ctx context.Context, events ...Event) error
}
