// Package domain holds typed identifiers shared across modules.
//
// Each identifier wraps a UUID so the compiler rejects passing a subject id
// where an appeal id is expected. Parse functions are the trust boundary for
// ids arriving from HTTP paths, tokens and CLI flags.
package domain

import (
	"github.com/google/uuid"

	dErrors "dealdesk/pkg/domain-errors"
)

type (
	// ActorID identifies an authenticated caller (party, reviewer or scorer).
	ActorID uuid.UUID
	// SubjectID identifies a reviewable subject such as a deal.
	SubjectID uuid.UUID
	// AppealID identifies an appeal filed against a subject decision.
	AppealID uuid.UUID
	// RecordID identifies a reversible response record.
	RecordID uuid.UUID
	// ScoreID identifies one compliance score snapshot.
	ScoreID uuid.UUID
	// EntryID identifies a single audit ledger entry.
	EntryID uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return parsed, nil
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	return ActorID(u), err
}

func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s, "subject id")
	return SubjectID(u), err
}

func ParseAppealID(s string) (AppealID, error) {
	u, err := parseUUID(s, "appeal id")
	return AppealID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func ParseScoreID(s string) (ScoreID, error) {
	u, err := parseUUID(s, "score id")
	return ScoreID(u), err
}

func (id ActorID) String() string   { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id AppealID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id ScoreID) String() string   { return uuid.UUID(id).String() }
func (id EntryID) String() string   { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AppealID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ScoreID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps typed ids readable in JSON bodies and ledger payloads.

func (id ActorID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id SubjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id AppealID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ScoreID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id EntryID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *ActorID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SubjectID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AppealID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ScoreID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EntryID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
