// Package upgrader adds accept-side backpressure to a Listener: at
// most N handshakes (the Awaiter stage of an Incoming event) run
// concurrently, gating Awaiter.Await with a counting semaphore rather
// than the accept loop itself, since the caller, not the listener,
// decides when to drive an Incoming event's handshake.
package upgrader

import (
	"context"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
	"github.com/TheNoobiCat/go-airio/core/transport"
)

// threshold is a counting semaphore bounding concurrent in-flight
// handshakes.
type threshold struct {
	slots chan struct{}
}

func newThreshold(max int) *threshold {
	return &threshold{slots: make(chan struct{}, max)}
}

func (t *threshold) acquire(ctx context.Context) error {
	select {
	case t.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *threshold) release() { <-t.slots }

// Wrap bounds inner so at most maxConcurrent Incoming events are being
// awaited (handshaked) at once; further Awaiter.Await calls block until
// a slot frees up. Listened/Error/Closed events pass through untouched.
func Wrap[O any](inner transport.Listener[O], maxConcurrent int) transport.Listener[O] {
	return &listener[O]{inner: inner, th: newThreshold(maxConcurrent)}
}

type listener[O any] struct {
	inner transport.Listener[O]
	th    *threshold
}

func (l *listener[O]) Next(ctx context.Context) (transport.Event[O], error) {
	ev, err := l.inner.Next(ctx)
	if err != nil || !ev.IsIncoming() {
		return ev, err
	}
	inner := ev.Upgrade()
	th := l.th
	gated := transport.AwaiterFunc[O](func(ctx context.Context) (O, error) {
		var zero O
		if err := th.acquire(ctx); err != nil {
			return zero, err
		}
		defer th.release()
		return inner.Await(ctx)
	})
	local, remote := ev.IncomingAddrs()
	return event.Incoming[transport.Awaiter[O], error](local, remote, gated), nil
}

func (l *listener[O]) Close() error   { return l.inner.Close() }
func (l *listener[O]) Addr() net.Addr { return l.inner.Addr() }
