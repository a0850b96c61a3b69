package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Details is the action-specific payload of an entry. The set of
// implementations is closed; consumers switch on the concrete type.
type Details interface {
	Action() Action
	// Summary returns the decision and note columns used by exports.
	Summary() (decision, note string)
	// Redacted strips fields that only reviewers may read.
	Redacted() Details
	sealed()
}

type Submitted struct{}

type DecisionRecorded struct {
	Outcome      string `json:"outcome"`
	ReviewerNote string `json:"reviewer_note,omitempty"`
	InternalNote string `json:"internal_note,omitempty"`
	// AppealID is set when the decision results from an overturned appeal.
	AppealID *uuid.UUID `json:"appeal_id,omitempty"`
}

type DecisionViewed struct{}

type ScoreOverridden struct {
	ScoreID       uuid.UUID `json:"score_id"`
	Value         float64   `json:"value"`
	PreviousTotal float64   `json:"previous_total"`
	Justification string    `json:"justification,omitempty"`
}

type ConditionsCompleted struct {
	Notes        string `json:"notes,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
}

type AppealFiled struct {
	AppealID             uuid.UUID `json:"appeal_id"`
	Reason               string    `json:"reason"`
	Documents            []string  `json:"documents,omitempty"`
	OriginalDecision     string    `json:"original_decision"`
	OriginalReviewerNote string    `json:"original_reviewer_note,omitempty"`
	OriginalDecidedAt    time.Time `json:"original_decided_at"`
}

type AppealResolved struct {
	AppealID     uuid.UUID `json:"appeal_id"`
	Outcome      string    `json:"outcome"`
	ReviewerNote string    `json:"reviewer_note,omitempty"`
	NewDecision  string    `json:"new_decision,omitempty"`
}

type ResponseOpened struct {
	RequesterID     uuid.UUID `json:"requester_id"`
	ResponderID     uuid.UUID `json:"responder_id"`
	IntroductionRef string    `json:"introduction_ref,omitempty"`
}

type ResponseAccepted struct{}

type ResponseDeclined struct {
	Reason string `json:"reason,omitempty"`
}

type ResponseReconsidered struct {
	DeclinedAt time.Time `json:"declined_at"`
}

func (Submitted) Action() Action            { return ActionSubmitted }
func (DecisionRecorded) Action() Action     { return ActionDecisionRecorded }
func (DecisionViewed) Action() Action       { return ActionDecisionViewed }
func (ScoreOverridden) Action() Action      { return ActionScoreOverridden }
func (ConditionsCompleted) Action() Action  { return ActionConditionsCompleted }
func (AppealFiled) Action() Action          { return ActionAppealFiled }
func (AppealResolved) Action() Action       { return ActionAppealResolved }
func (ResponseOpened) Action() Action       { return ActionResponseOpened }
func (ResponseAccepted) Action() Action     { return ActionResponseAccepted }
func (ResponseDeclined) Action() Action     { return ActionResponseDeclined }
func (ResponseReconsidered) Action() Action { return ActionResponseReconsidered }

func (Submitted) Summary() (string, string)          { return "", "" }
func (d DecisionRecorded) Summary() (string, string) { return d.Outcome, d.ReviewerNote }
func (DecisionViewed) Summary() (string, string)     { return "", "" }
func (d ScoreOverridden) Summary() (string, string) {
	return "", fmt.Sprintf("override %.2f (was %.2f): %s", d.Value, d.PreviousTotal, d.Justification)
}
func (d ConditionsCompleted) Summary() (string, string) { return "", d.Notes }
func (d AppealFiled) Summary() (string, string)         { return d.OriginalDecision, d.Reason }
func (d AppealResolved) Summary() (string, string) {
	return d.NewDecision, d.Outcome + ": " + d.ReviewerNote
}
func (ResponseOpened) Summary() (string, string)       { return "", "" }
func (ResponseAccepted) Summary() (string, string)     { return "", "" }
func (d ResponseDeclined) Summary() (string, string)   { return "", d.Reason }
func (ResponseReconsidered) Summary() (string, string) { return "", "" }

func (d Submitted) Redacted() Details { return d }
func (d DecisionRecorded) Redacted() Details {
	d.InternalNote = ""
	return d
}
func (d DecisionViewed) Redacted() Details { return d }
func (d ScoreOverridden) Redacted() Details {
	d.Justification = ""
	return d
}
func (d ConditionsCompleted) Redacted() Details  { return d }
func (d AppealFiled) Redacted() Details          { return d }
func (d AppealResolved) Redacted() Details       { return d }
func (d ResponseOpened) Redacted() Details       { return d }
func (d ResponseAccepted) Redacted() Details     { return d }
func (d ResponseDeclined) Redacted() Details     { return d }
func (d ResponseReconsidered) Redacted() Details { return d }

func (Submitted) sealed()            {}
func (DecisionRecorded) sealed()     {}
func (DecisionViewed) sealed()       {}
func (ScoreOverridden) sealed()      {}
func (ConditionsCompleted) sealed()  {}
func (AppealFiled) sealed()          {}
func (AppealResolved) sealed()       {}
func (ResponseOpened) sealed()       {}
func (ResponseAccepted) sealed()     {}
func (ResponseDeclined) sealed()     {}
func (ResponseReconsidered) sealed() {}

// EncodeDetails serializes a payload for storage.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("ledger: nil details")
	}
	return json.Marshal(d)
}

// DecodeDetails restores the payload for action from its stored form.
func DecodeDetails(action Action, raw []byte) (Details, error) {
	switch action {
	case ActionSubmitted:
		return decodeAs[Submitted](raw)
	case ActionDecisionRecorded:
		return decodeAs[DecisionRecorded](raw)
	case ActionDecisionViewed:
		return decodeAs[DecisionViewed](raw)
	case ActionScoreOverridden:
		return decodeAs[ScoreOverridden](raw)
	case ActionConditionsCompleted:
		return decodeAs[ConditionsCompleted](raw)
	case ActionAppealFiled:
		return decodeAs[AppealFiled](raw)
	case ActionAppealResolved:
		return decodeAs[AppealResolved](raw)
	case ActionResponseOpened:
		return decodeAs[ResponseOpened](raw)
	case ActionResponseAccepted:
		return decodeAs[ResponseAccepted](raw)
	case ActionResponseDeclined:
		return decodeAs[ResponseDeclined](raw)
	case ActionResponseReconsidered:
		return decodeAs[ResponseReconsidered](raw)
	default:
		return nil, fmt.Errorf("ledger: unknown action %q", action)
	}
}

func decodeAs[T Details](raw []byte) (Details, error) {
	var d T
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("ledger: decode details: %w", err)
	}
	return d, nil
}

// UnmarshalJSON restores Details using the entry's action.
func (e *Entry) UnmarshalJSON(b []byte) error {
	type plain Entry
	var aux struct {
		plain
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	details, err := DecodeDetails(aux.Action, aux.Details)
	if err != nil {
		return err
	}
	*e = Entry(aux.plain)
	e.Details = details
	return nil
}
