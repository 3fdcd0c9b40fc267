package pending

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// State of a Handle. A handle leaves Pending exactly once.
type State int32

const (
	Pending State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what a handle is completed with: a raw result or an error.
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// Success builds a successful outcome.
func Success(result json.RawMessage) Outcome {
	return Outcome{Result: result}
}

// Failure builds a failed outcome.
func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// Handle is a single-assignment result container. Readers block in Wait until the
// handle is completed; the first completion wins and later ones are rejected.
type Handle struct {
	id      string
	state   atomic.Int32
	outcome Outcome
	done    chan struct{}
}

func newHandle(id string) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// NewHandle returns an unregistered handle, already completed with o.
// Notifications use it: nothing will ever answer them.
func NewHandle(o Outcome) *Handle {
	h := newHandle("")
	h.complete(o)
	return h
}

// ID returns the correlation key the handle was registered under.
func (h *Handle) ID() string {
	return h.id
}

// State reports the current state without blocking.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the handle is completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Outcome returns the completed outcome. It must only be called after Done is closed.
func (h *Handle) Outcome() Outcome {
	return h.outcome
}

// Wait blocks until the handle is completed or ctx is done.
func (h *Handle) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-h.done:
		return h.outcome.Result, h.outcome.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete writes o into the handle. It returns false if the handle was already completed.
// outcome is written before done is closed, so readers that observed done see it.
func (h *Handle) complete(o Outcome) bool {
	next := Resolved
	if o.Err != nil {
		next = Failed
	}
	if !h.state.CompareAndSwap(int32(Pending), int32(next)) {
		return false
	}
	h.outcome = o
	close(h.done)
	return true
}
