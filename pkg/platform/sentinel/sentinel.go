package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: record does not exist
//   - ErrConflict: a record with the same identity already exists
//   - ErrInvalidState: record is not in the state the write was conditioned on
//   - ErrAlreadyApplied: an idempotency reference was already recorded
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidState   = errors.New("invalid state")
	ErrAlreadyApplied = errors.New("already applied")
	ErrUnavailable    = errors.New("unavailable")
)
