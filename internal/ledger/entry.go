// Package ledger is the append-only audit log that every state change is
// written to. It is also the source of truth: decision state, appeals and
// response history are projections folded from a subject's entry stream.
//
// Entries are never updated or deleted. Each subject stream is numbered from
// 1 with no gaps; (SubjectID, Sequence) is unique, which is how concurrent
// writers to the same subject are detected.
package ledger

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	id "dealdesk/pkg/domain"
)

// SubjectKind distinguishes the streams that share the ledger.
type SubjectKind string

const (
	KindDeal     SubjectKind = "deal"
	KindResponse SubjectKind = "response"
)

// Action names what an entry records. The set is closed; each action has
// exactly one Details shape.
type Action string

const (
	ActionSubmitted           Action = "submitted"
	ActionDecisionRecorded    Action = "decision_recorded"
	ActionDecisionViewed      Action = "decision_viewed"
	ActionScoreOverridden     Action = "score_overridden"
	ActionConditionsCompleted Action = "conditions_completed"
	ActionAppealFiled         Action = "appeal_filed"
	ActionAppealResolved      Action = "appeal_resolved"

	ActionResponseOpened       Action = "response_opened"
	ActionResponseAccepted     Action = "response_accepted"
	ActionResponseDeclined     Action = "response_declined"
	ActionResponseReconsidered Action = "response_reconsidered"
)

// Actions lists every known action in a stable order.
var Actions = []Action{
	ActionSubmitted,
	ActionDecisionRecorded,
	ActionDecisionViewed,
	ActionScoreOverridden,
	ActionConditionsCompleted,
	ActionAppealFiled,
	ActionAppealResolved,
	ActionResponseOpened,
	ActionResponseAccepted,
	ActionResponseDeclined,
	ActionResponseReconsidered,
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Entry is one immutable audit record.
type Entry struct {
	ID            id.EntryID  `json:"id"`
	SubjectID     uuid.UUID   `json:"subject_id"`
	SubjectKind   SubjectKind `json:"subject_kind"`
	Sequence      int64       `json:"sequence"`
	Actor         id.ActorID  `json:"actor"`
	Action        Action      `json:"action"`
	PreviousState string      `json:"previous_state"`
	NewState      string      `json:"new_state"`
	Details       Details     `json:"details"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewEntry builds the next entry of a stream. The action comes from details.
func NewEntry(kind SubjectKind, subjectID uuid.UUID, sequence int64, actor id.ActorID, prev, next string, details Details, at time.Time) Entry {
	return Entry{
		ID:            id.EntryID(uuid.New()),
		SubjectID:     subjectID,
		SubjectKind:   kind,
		Sequence:      sequence,
		Actor:         actor,
		Action:        details.Action(),
		PreviousState: prev,
		NewState:      next,
		Details:       details,
		Timestamp:     at.UTC(),
	}
}

// Filter narrows a ledger listing. Zero fields match everything.
// From is inclusive, To is exclusive.
type Filter struct {
	From      time.Time
	To        time.Time
	SubjectID uuid.UUID
	Kind      SubjectKind
	Actor     id.ActorID
	Actions   []Action
	Limit     int

	// After resumes a listing strictly past a previously returned entry.
	After *Position
}

// Position is an entry's place in listing order: timestamp, then subject,
// then sequence.
type Position struct {
	Timestamp time.Time
	SubjectID uuid.UUID
	Sequence  int64
}

func PositionOf(e Entry) Position {
	return Position{Timestamp: e.Timestamp, SubjectID: e.SubjectID, Sequence: e.Sequence}
}

// Less reports whether p sorts before q.
func (p Position) Less(q Position) bool {
	if !p.Timestamp.Equal(q.Timestamp) {
		return p.Timestamp.Before(q.Timestamp)
	}
	if p.SubjectID != q.SubjectID {
		return bytes.Compare(p.SubjectID[:], q.SubjectID[:]) < 0
	}
	return p.Sequence < q.Sequence
}

// Matches applies the filter to one entry. Stores without query support use it.
func (f Filter) Matches(e Entry) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	if f.After != nil && !f.After.Less(PositionOf(e)) {
		return false
	}
	if f.SubjectID != uuid.Nil && e.SubjectID != f.SubjectID {
		return false
	}
	if f.Kind != "" && e.SubjectKind != f.Kind {
		return false
	}
	if !f.Actor.IsNil() && e.Actor != f.Actor {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store persists entries.
//
// Append writes all entries atomically or none. It returns an error wrapping
// sentinel.ErrConflict when any (SubjectID, Sequence) is already taken.
// Stream returns a subject's entries ordered by sequence (empty if none).
// List returns matching entries ordered by timestamp, subject and sequence.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	Stream(ctx context.Context, subjectID uuid.UUID) ([]Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Transactor runs fn as one read-validate-append unit for the stream keyed by key.
// Stores called with the ctx passed to fn join the transaction.
type Transactor interface {
	RunInTx(ctx context.Context, key uuid.UUID, fn func(ctx context.Context) error) error
}
