package listener

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start when the listener is not idle.
	ErrAlreadyStarted = errors.New("listener already started")
	// ErrNotStarted is returned when an operation needs a living listener.
	ErrNotStarted = errors.New("listener not started")
	// ErrAlreadyBound is returned when the key already has a callback.
	ErrAlreadyBound = errors.New("key already bound")
	// ErrNotBound is returned when unbinding a key with no callback.
	ErrNotBound = errors.New("key not bound")
	// ErrAlreadyGrabbed is returned when another client owns the combo.
	ErrAlreadyGrabbed = errors.New("combo already grabbed by another client")
	// ErrTimeout is returned when the worker did not answer in time.
	ErrTimeout = errors.New("worker did not respond in time")
	// ErrWorkerExited is returned when the worker is gone.
	ErrWorkerExited = errors.New("worker exited")

	// ErrWoken is returned by EventSource.Next after a Wake.
	ErrWoken = errors.New("event source woken")
	// ErrClosed is returned by EventSource.Next once the source is gone.
	ErrClosed = errors.New("event source closed")
)

// PlatformError reports an OS refusal that has no more specific meaning.
type PlatformError struct {
	Op   string
	Code int
	Err  error
}

func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s rejected by platform (code %d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s rejected by platform (code %d)", e.Op, e.Code)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}
