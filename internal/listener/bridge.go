package listener

import (
	"fmt"
	"sync"
	"time"
)

type opKind int

const (
	opOpen opKind = iota
	opGrab
	opUngrab
	opStop
)

func (o opKind) String() string {
	switch o {
	case opOpen:
		return "open"
	case opGrab:
		return "grab"
	case opUngrab:
		return "ungrab"
	case opStop:
		return "stop"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// command is one request to the worker. Exactly one of complete or
// abandon wins; the loser learns about it from the return value.
type command struct {
	op  opKind
	key BindKey

	mu        sync.Mutex
	finished  bool
	abandoned bool
	done      chan error
}

func newCommand(op opKind, key BindKey) *command {
	return &command{op: op, key: key, done: make(chan error, 1)}
}

// complete records the worker's result. It returns false when the caller
// already gave up, in which case the worker owns the cleanup.
func (c *command) complete(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandoned {
		return false
	}
	c.finished = true
	c.done <- err
	return true
}

// abandon withdraws the caller's interest. If the worker finished first
// its result is returned with ok set.
func (c *command) abandon() (result error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return <-c.done, true
	}
	c.abandoned = true
	return nil, false
}

// bridge carries commands from callers to one worker. It has a single
// slot and one command in flight at a time.
type bridge struct {
	submitMu sync.Mutex
	slot     chan *command
	wake     func() error
	timeout  time.Duration

	mu       sync.Mutex
	closed   bool
	closeErr error
	exited   chan struct{}
	// orphans are ungrabs withdrawn before the worker saw them. The
	// binding is gone from the table but the worker still holds its edge.
	orphans []BindKey
}

func newBridge(wake func() error, timeout time.Duration) *bridge {
	return &bridge{
		slot:    make(chan *command, 1),
		wake:    wake,
		timeout: timeout,
		exited:  make(chan struct{}),
	}
}

// submit hands cmd to the worker, wakes it and waits for the result.
func (b *bridge) submit(cmd *command) error {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	b.mu.Lock()
	if b.closed {
		err := b.closeErr
		b.mu.Unlock()
		return err
	}
	select {
	case b.slot <- cmd:
	default:
		b.mu.Unlock()
		return ErrTimeout
	}
	b.mu.Unlock()

	if err := b.wake(); err != nil {
		b.giveUp(cmd)
		return fmt.Errorf("wake worker: %w", err)
	}
	return b.await(cmd)
}

// await waits for cmd without submitting it.
func (b *bridge) await(cmd *command) error {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case err := <-cmd.done:
		return err
	case <-b.exited:
		if err, ok := cmd.abandon(); ok {
			return err
		}
		return ErrWorkerExited
	case <-timer.C:
		if err, ok := b.giveUp(cmd); ok {
			return err
		}
		return ErrTimeout
	}
}

// giveUp withdraws cmd if the worker has not taken it and abandons it. A
// withdrawn ungrab is kept as an orphan for the worker to replay.
func (b *bridge) giveUp(cmd *command) (result error, ok bool) {
	withdrawn := b.withdraw()
	if err, ok := cmd.abandon(); ok {
		return err, true
	}
	if withdrawn && cmd.op == opUngrab {
		b.mu.Lock()
		b.orphans = append(b.orphans, cmd.key)
		b.mu.Unlock()
	}
	return nil, false
}

// takeOrphans returns and clears the pending orphaned ungrabs. Worker only.
func (b *bridge) takeOrphans() []BindKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := b.orphans
	b.orphans = nil
	return keys
}

// take returns the pending command, if any. Worker only.
func (b *bridge) take() (*command, bool) {
	select {
	case cmd := <-b.slot:
		return cmd, true
	default:
		return nil, false
	}
}

func (b *bridge) withdraw() bool {
	select {
	case <-b.slot:
		return true
	default:
		return false
	}
}

// close rejects every later submission with err. The first error wins.
func (b *bridge) close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.closeErr = err
}

func (b *bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// exit is called once by the worker on its way out.
func (b *bridge) exit() {
	b.close(ErrWorkerExited)
	close(b.exited)
	if cmd, ok := b.take(); ok {
		cmd.complete(ErrWorkerExited)
	}
}
