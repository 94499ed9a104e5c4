package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrDuplicateNumber: certificate or registration number already taken
// - ErrDuplicateParcel: a live certificate already exists for the parcel
// - ErrInvalidState: record in wrong status for the requested transition
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrDuplicateNumber = errors.New("duplicate number")
	ErrDuplicateParcel = errors.New("duplicate parcel")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
