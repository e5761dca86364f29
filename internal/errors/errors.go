package errors

import "errors"

// Error taxonomy for the admission and reservation core. Services wrap these
// with fmt.Errorf("...: %w", ...), callers match with errors.Is, handlers
// map them to HTTP statuses.
var (
	// ErrUnauthorized: missing/invalid/expired admission token, or acting
	// on another user's reservation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBusy: a distributed lock could not be obtained after retries.
	// Callers should retry later; this is not a system fault.
	ErrBusy = errors.New("resource busy, retry later")

	// ErrNotFound: unknown seat, reservation or token.
	ErrNotFound = errors.New("not found")

	// ErrSeatTaken: the seat is held by someone else and the hold has not
	// lapsed yet.
	ErrSeatTaken = errors.New("seat already taken")

	// ErrInvalidState: the operation is illegal for the current status.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrExpired: token or hold past its deadline.
	ErrExpired = errors.New("expired")
)
