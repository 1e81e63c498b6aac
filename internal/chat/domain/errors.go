package domain

import "errors"

// error taxonomy of the realtime layer, classify with errors.Is
var (
	// ErrInvalidArgument malformed or empty user identity
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidation request rejected before anything is persisted
	ErrValidation = errors.New("validation error")
	// ErrNotFound message or conversation does not exist
	ErrNotFound = errors.New("not found")
	// ErrPersistence store unavailable or write failed
	ErrPersistence = errors.New("persistence failure")
	// ErrConnectionLost connection closed while an event was being delivered
	ErrConnectionLost = errors.New("connection lost")
)
