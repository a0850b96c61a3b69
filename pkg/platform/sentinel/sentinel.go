package sentinel

import "errors"

// Sentinel errors for storage facts. Ledger, facts and score stores return
// these (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: the subject, record or score does not exist
//   - ErrConflict: an optimistic write lost, e.g. the ledger sequence was taken
//   - ErrInvalidState: a stored stream cannot be replayed into a valid projection
//   - ErrUnavailable: the backing store or broker is temporarily unavailable
//
// Input validation never uses these; see pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
