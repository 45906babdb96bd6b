package listener

// Handle is whatever a platform adapter needs to release a grab.
type Handle any

// EventSource is an interruptible stream of grabbed transitions.
type EventSource interface {
	// Next blocks until an event arrives. It returns ErrWoken after Wake
	// and ErrClosed once the source can no longer produce events.
	Next() (RawEvent, error)
	// Wake makes a pending or the next Next call return. It may be called
	// from any goroutine, any number of times.
	Wake() error
}

// Adapter is a platform grab primitive. Every method except Wake is
// called on the listener's worker thread only.
type Adapter interface {
	EventSource

	Open() error
	Close() error

	// Grab takes exclusive ownership of a combo. It returns
	// ErrAlreadyGrabbed when another client owns it and a *PlatformError
	// for any other refusal.
	Grab(c Combo) (Handle, error)
	Ungrab(h Handle) error
}
