package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the storage adapter and
// the gateway client return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: key, application or verification code does not exist
//   - ErrExpired: verification code or token has expired
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backend or upstream service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
