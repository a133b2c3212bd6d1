package upgrade

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/TheNoobiCat/go-airio/core/negotiate"
)

// applyState is UpgradeApply's four-state machine. Undefined is a
// transient scratch state held only while a transition is in flight;
// it must never be observed by a concurrent caller, and Run guards
// against that by panicking if it ever sees Undefined on entry; the
// only way that can happen is a second, overlapping call to Run,
// which violates the single-owner contract every Apply carries.
type applyState int

const (
	stateDialerInit applyState = iota
	stateListenerInit
	stateUndefined
	stateDone
)

// Apply drives multistream-style protocol negotiation over rw, then
// runs the upgrade it selects. The whole transition sequence
// (negotiate, then run the matching entrypoint) happens inside one
// blocking Run(ctx) call; the state enum exists to make misuse
// (re-running, concurrent running) detectable, not to let callers
// drive the machine step by step.
type Apply[O any] struct {
	mu    sync.Mutex
	state applyState

	rw       io.ReadWriteCloser
	upgrade  Upgrade[io.ReadWriteCloser, O]
	isDialer bool
	name     string
}

// NewOutbound builds an Apply that will run upgrade's outbound
// entrypoint once negotiation, as the dialer, selects a protocol.
func NewOutbound[O any](rw io.ReadWriteCloser, u Upgrade[io.ReadWriteCloser, O]) *Apply[O] {
	return &Apply[O]{state: stateDialerInit, rw: rw, upgrade: u, isDialer: true}
}

// NewInbound builds an Apply that will run upgrade's inbound
// entrypoint once negotiation, as the listener, selects a protocol.
func NewInbound[O any](rw io.ReadWriteCloser, u Upgrade[io.ReadWriteCloser, O]) *Apply[O] {
	return &Apply[O]{state: stateListenerInit, rw: rw, upgrade: u, isDialer: false}
}

// NegotiatedProtocol returns the protocol name negotiation selected.
// It is only meaningful after Run has returned successfully.
func (a *Apply[O]) NegotiatedProtocol() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Run negotiates a protocol over rw, then runs the selected upgrade's
// matching entrypoint, and returns its Output. No network I/O occurs
// before Run is called. Run must be called exactly once; a second call
// (whether because the first is still in flight or because it already
// returned) is a fatal invariant violation and panics rather than
// silently reusing stale state.
func (a *Apply[O]) Run(ctx context.Context) (O, error) {
	a.mu.Lock()
	switch a.state {
	case stateDialerInit, stateListenerInit:
		isDialer := a.state == stateDialerInit
		a.state = stateUndefined
		a.mu.Unlock()
		return a.run(ctx, isDialer)
	case stateDone:
		a.mu.Unlock()
		panic("upgrade: Apply.Run called again after a terminal result")
	default:
		a.mu.Unlock()
		panic(fmt.Sprintf("upgrade: Apply.Run observed Undefined state %d, concurrent use of a single Apply", a.state))
	}
}

func (a *Apply[O]) run(ctx context.Context, isDialer bool) (O, error) {
	var zero O

	var (
		proto      string
		negotiated negotiate.Negotiated
		err        error
	)
	if isDialer {
		proto, negotiated, err = negotiate.DialerSelect(ctx, a.rw, a.upgrade.ProtocolInfo())
	} else {
		proto, negotiated, err = negotiate.ListenerSelect(ctx, a.rw, a.upgrade.ProtocolInfo())
	}
	if err != nil {
		// A failed negotiation leaves the stream in an unusable state;
		// close it so the remote observes EOF instead of hanging.
		a.rw.Close()
		a.finish()
		return zero, &Error{Kind: SelectErrorKind, Err: err}
	}

	a.mu.Lock()
	a.name = proto
	a.mu.Unlock()

	var out O
	if isDialer {
		out, err = a.upgrade.UpgradeOutbound(ctx, negotiated, proto)
	} else {
		out, err = a.upgrade.UpgradeInbound(ctx, negotiated, proto)
	}
	a.finish()
	if err != nil {
		negotiated.Close()
		return zero, &Error{Kind: ApplyErrorKind, Err: err}
	}
	return out, nil
}

func (a *Apply[O]) finish() {
	a.mu.Lock()
	a.state = stateDone
	a.mu.Unlock()
}
