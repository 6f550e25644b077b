package actor

import "errors"

var (
	// ErrTimeout is returned by Ask when no reply arrives within the
	// requested timeout.
	ErrTimeout = errors.New("actor: ask timed out")
	// ErrActorNotFound is returned by Ask/Send-with-error-reporting paths
	// when the target PID no longer resolves to a live process.
	ErrActorNotFound = errors.New("actor: actor not found")
)
