package engine

import "errors"

// Failure classes for the stages of a turn. Handlers map these to HTTP
// statuses; logs keep the wrapped cause.
var (
	ErrUnknownSubject = errors.New("unknown subject area")

	ErrRouting    = errors.New("intent routing failed")
	ErrRetrieval  = errors.New("example retrieval failed")
	ErrSelection  = errors.New("table selection failed")
	ErrGeneration = errors.New("sql generation failed")
	ErrExecution  = errors.New("sql execution failed")
)
