// pkg/engine/errors.go
package engine

import "errors"

var (
	// ErrInvalidArgument reports a caller mistake: an unrecognized engine
	// kind, wait criterion, or a malformed proxy URI. It is returned before
	// any side effect takes place (no process spawn, no polling).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEngineStart reports that the browser process could not be started
	// (bad executable path, port conflict). Fatal; the handle does not retry.
	ErrEngineStart = errors.New("engine start failed")

	// ErrTimeout reports that EnsureElement's predicate never held within the
	// wait window.
	ErrTimeout = errors.New("wait timed out")

	// ErrClickFailed reports that ClickWithRetry exhausted all attempts. It
	// wraps the last underlying engine error for diagnosis.
	ErrClickFailed = errors.New("click failed")
)
