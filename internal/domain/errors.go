package domain

import "errors"

var (
	// ErrUnknownCommand is returned when a command turn names no registered
	// handler. It is fatal for that turn, never silently ignored.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnrecognizedCandidate is returned when the output selector sees a
	// candidate key it has no policy branch for. It indicates an action was
	// registered without a selection rule.
	ErrUnrecognizedCandidate = errors.New("unrecognized candidate output key")

	// ErrOrderingViolation is returned when an outbound timestamp does not
	// strictly exceed the triggering request's timestamp.
	ErrOrderingViolation = errors.New("response timestamp does not follow request")

	// ErrUnsupported is returned by engines for operations they cannot
	// serve (e.g. fetching a document by id from a web search engine).
	ErrUnsupported = errors.New("operation not supported")
)
