package errors

import "errors"

// Validation errors. Raised before any remote call is issued.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrCycleDetected  = errors.New("move would create a cycle")
	ErrParentNotFound = errors.New("parent folder not found")
)

// Local tree errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("duplicate item id")
	ErrNotLoaded   = errors.New("tree not loaded")
)

// Server/transport errors.
var (
	ErrNetworkFailure  = errors.New("network failure")
	ErrRemoteRejection = errors.New("remote rejected request")
)
