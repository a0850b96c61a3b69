// Package models holds the reversible response record: an accept/decline
// answer to an introduction that may be reconsidered once after a decline.
//
// Like review subjects, a record is never stored directly. Its ledger
// stream, starting at response_opened, is folded by Replay and every
// command applies what it emits through the same fold.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"dealdesk/internal/clock"
	"dealdesk/internal/ledger"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/sentinel"
	pstrings "dealdesk/pkg/platform/strings"
)

const (
	maxReasonLength          = 2000
	maxIntroductionRefLength = 200
)

// Status is the record's answer state.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// HistoryStatus labels one history entry. Reconsidered is history-only;
// the record itself goes back to pending.
type HistoryStatus string

const (
	HistoryOpened       HistoryStatus = "opened"
	HistoryAccepted     HistoryStatus = "accepted"
	HistoryDeclined     HistoryStatus = "declined"
	HistoryReconsidered HistoryStatus = "reconsidered"
)

type HistoryEntry struct {
	Status HistoryStatus `json:"status"`
	At     time.Time     `json:"at"`
	Actor  id.ActorID    `json:"actor"`
	Reason string        `json:"reason,omitempty"`
}

// Record is a response record as of its latest ledger entry.
//
// Invariants:
//   - History only grows
//   - At most one history entry is reconsidered
type Record struct {
	ID              id.RecordID    `json:"id"`
	RequesterID     id.ActorID     `json:"requester_id"`
	ResponderID     id.ActorID     `json:"responder_id"`
	IntroductionRef string         `json:"introduction_ref,omitempty"`
	Status          Status         `json:"status"`
	OpenedAt        time.Time      `json:"opened_at"`
	RespondedAt     *time.Time     `json:"responded_at,omitempty"`
	History         []HistoryEntry `json:"history"`
	Version         int64          `json:"version"`
}

// ErrCorruptStream is wrapped by Replay when a stream cannot be folded.
var ErrCorruptStream = errors.New("corrupt response stream")

// Open starts a record in pending.
func Open(recordID id.RecordID, requester, responder id.ActorID, introductionRef string, at time.Time) (*Record, []ledger.Entry, error) {
	if requester.IsNil() || responder.IsNil() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "requester and responder are required")
	}
	if requester == responder {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "requester and responder must differ")
	}
	introductionRef = strings.TrimSpace(introductionRef)
	if !pstrings.Storable(introductionRef) {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "introduction_ref contains invalid characters")
	}
	if utf8.RuneCountInString(introductionRef) > maxIntroductionRefLength {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "introduction_ref is too long")
	}
	r := &Record{ID: recordID, Status: StatusNone}
	e, err := r.emit(requester, StatusPending, ledger.ResponseOpened{
		RequesterID:     uuid.UUID(requester),
		ResponderID:     uuid.UUID(responder),
		IntroductionRef: introductionRef,
	}, at)
	if err != nil {
		return nil, nil, err
	}
	return r, []ledger.Entry{e}, nil
}

// Replay folds a record's stream. An empty stream is not found.
func Replay(recordID id.RecordID, entries []ledger.Entry) (*Record, error) {
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	r := &Record{ID: recordID, Status: StatusNone}
	for _, e := range entries {
		if err := r.apply(e); err != nil {
			return nil, errors.Join(err, sentinel.ErrInvalidState)
		}
	}
	return r, nil
}

func (r *Record) IsResponder(actor id.ActorID) bool { return r.ResponderID == actor }

// IsParty reports whether actor is the requester or the responder.
func (r *Record) IsParty(actor id.ActorID) bool {
	return r.RequesterID == actor || r.ResponderID == actor
}

// HasReconsidered reports whether the one reconsideration was used. The
// history is the only count.
func (r *Record) HasReconsidered() bool {
	for _, h := range r.History {
		if h.Status == HistoryReconsidered {
			return true
		}
	}
	return false
}

// Accept answers a pending record.
func (r *Record) Accept(actor id.ActorID, at time.Time) ([]ledger.Entry, error) {
	if r.Status != StatusPending {
		return nil, wrongState(r.Status, "only a pending response can be accepted")
	}
	e, err := r.emit(actor, StatusAccepted, ledger.ResponseAccepted{}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// Decline answers a pending record and opens the reconsider window.
func (r *Record) Decline(actor id.ActorID, reason string, at time.Time) ([]ledger.Entry, error) {
	reason = strings.TrimSpace(reason)
	if !pstrings.Storable(reason) {
		return nil, dErrors.New(dErrors.CodeValidation, "reason contains invalid characters")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	if r.Status != StatusPending {
		return nil, wrongState(r.Status, "only a pending response can be declined")
	}
	e, err := r.emit(actor, StatusDeclined, ledger.ResponseDeclined{Reason: reason}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// Reconsider reverts the latest decline to pending. It is allowed once per
// record, within the window of that decline.
func (r *Record) Reconsider(actor id.ActorID, window clock.Window, at time.Time) ([]ledger.Entry, error) {
	if r.Status != StatusDeclined || r.RespondedAt == nil {
		return nil, wrongState(r.Status, "only a declined response can be reconsidered")
	}
	if !window.Allows(*r.RespondedAt, at) {
		return nil, dErrors.Conflict(dErrors.CodeWindowExpired, "the reconsider window has closed", string(r.Status))
	}
	if r.HasReconsidered() {
		return nil, dErrors.Conflict(dErrors.CodeAlreadyReconsidered, "this response was already reconsidered once", string(r.Status))
	}
	e, err := r.emit(actor, StatusPending, ledger.ResponseReconsidered{DeclinedAt: *r.RespondedAt}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// WindowView is the reconsider window as seen at one instant.
type WindowView struct {
	RecordID         id.RecordID `json:"record_id"`
	Status           Status      `json:"status"`
	Open             bool        `json:"open"`
	Reconsiderable   bool        `json:"reconsiderable"`
	RespondedAt      *time.Time  `json:"responded_at,omitempty"`
	ClosesAt         *time.Time  `json:"closes_at,omitempty"`
	RemainingSeconds int64       `json:"remaining_seconds"`
}

// Window evaluates the reconsider window with the same arithmetic
// Reconsider uses. Without a decline there is no window.
func (r *Record) Window(window clock.Window, now time.Time) WindowView {
	v := WindowView{RecordID: r.ID, Status: r.Status}
	if r.Status != StatusDeclined || r.RespondedAt == nil {
		return v
	}
	st := window.Evaluate(*r.RespondedAt, now)
	closesAt := st.ClosesAt
	v.RespondedAt = r.RespondedAt
	v.ClosesAt = &closesAt
	v.Open = st.Open
	v.RemainingSeconds = st.RemainingSeconds()
	v.Reconsiderable = st.Open && !r.HasReconsidered()
	return v
}

func (r *Record) apply(e ledger.Entry) error {
	if e.SubjectKind != ledger.KindResponse {
		return fmt.Errorf("%w: entry %d is not a response entry", ErrCorruptStream, e.Sequence)
	}
	if e.Sequence != r.Version+1 {
		return fmt.Errorf("%w: expected sequence %d, got %d", ErrCorruptStream, r.Version+1, e.Sequence)
	}
	if Status(e.PreviousState) != r.Status {
		return fmt.Errorf("%w: entry %d starts from %s but record is %s", ErrCorruptStream, e.Sequence, e.PreviousState, r.Status)
	}
	next := Status(e.NewState)
	at := e.Timestamp
	if at.Before(r.lastAt()) {
		return fmt.Errorf("%w: entry %d at %s precedes %s", ErrCorruptStream, e.Sequence, at, r.lastAt())
	}

	switch d := e.Details.(type) {
	case ledger.ResponseOpened:
		if r.Status != StatusNone || next != StatusPending {
			return fmt.Errorf("%w: response opened twice", ErrCorruptStream)
		}
		r.RequesterID = id.ActorID(d.RequesterID)
		r.ResponderID = id.ActorID(d.ResponderID)
		r.IntroductionRef = d.IntroductionRef
		r.OpenedAt = at
		r.History = append(r.History, HistoryEntry{Status: HistoryOpened, At: at, Actor: e.Actor})
	case ledger.ResponseAccepted:
		if r.Status != StatusPending || next != StatusAccepted {
			return fmt.Errorf("%w: accept from %s", ErrCorruptStream, r.Status)
		}
		r.RespondedAt = &at
		r.History = append(r.History, HistoryEntry{Status: HistoryAccepted, At: at, Actor: e.Actor})
	case ledger.ResponseDeclined:
		if r.Status != StatusPending || next != StatusDeclined {
			return fmt.Errorf("%w: decline from %s", ErrCorruptStream, r.Status)
		}
		r.RespondedAt = &at
		r.History = append(r.History, HistoryEntry{Status: HistoryDeclined, At: at, Actor: e.Actor, Reason: d.Reason})
	case ledger.ResponseReconsidered:
		if r.Status != StatusDeclined || next != StatusPending || r.HasReconsidered() {
			return fmt.Errorf("%w: reconsider from %s", ErrCorruptStream, r.Status)
		}
		r.RespondedAt = nil
		r.History = append(r.History, HistoryEntry{Status: HistoryReconsidered, At: at, Actor: e.Actor})
	default:
		return fmt.Errorf("%w: action %s does not belong to a response record", ErrCorruptStream, e.Action)
	}

	r.Status = next
	r.Version = e.Sequence
	return nil
}

func (r *Record) emit(actor id.ActorID, next Status, details ledger.Details, at time.Time) (ledger.Entry, error) {
	// A skewed clock is tolerated; the entry is dated no earlier than the last one.
	if last := r.lastAt(); at.Before(last) {
		at = last
	}
	e := ledger.NewEntry(ledger.KindResponse, uuid.UUID(r.ID), r.Version+1, actor, string(r.Status), string(next), details, at)
	if err := r.apply(e); err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "response command produced an invalid entry")
	}
	return e, nil
}

// lastAt is the timestamp of the latest applied entry.
func (r *Record) lastAt() time.Time {
	if len(r.History) == 0 {
		return time.Time{}
	}
	return r.History[len(r.History)-1].At
}

func wrongState(current Status, msg string) error {
	return dErrors.Conflict(dErrors.CodeWrongState, msg, string(current))
}
