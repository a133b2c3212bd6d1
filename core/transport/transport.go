// Package transport defines the Transport capability, a factory for
// connection-producing futures and listener sequences, and the four
// combinators (Map, MapErr, AndThen, Boxed) that compose transports
// without performing any I/O themselves.
//
// The generic parameter is deliberately confined to the connection's
// Output type. Errors use the standard `error` interface throughout,
// with typed wrapper errors (CombinatorError, below) providing
// provenance via errors.As/errors.Unwrap. A second type parameter for
// the error type was considered and rejected: Go generics can't
// usefully type-assert a value of type parameter E back out of a plain
// `error`, so a dual-parameter design would force every combinator to
// carry its own reflection-based unwrap helper for no real benefit
// over `error` + errors.As.
package transport

import (
	"context"
	"errors"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// ErrListenerClosed is returned by Listener.Next once the listener has
// emitted its terminal Closed event, graceful or not, and has no more
// events to emit.
var ErrListenerClosed = errors.New("transport: listener closed")

// Awaiter is a handshake task: the pending result of an outbound dial
// or of an accepted connection's upgrade. Constructing an Awaiter must
// not itself perform network I/O; only Await may suspend.
type Awaiter[O any] interface {
	// Await blocks until the task completes, ctx is canceled, or the
	// underlying connection fails. Canceling ctx and discarding the
	// Awaiter is sufficient to release resources; there is no separate
	// cancel method.
	Await(ctx context.Context) (O, error)
}

// AwaiterFunc adapts a plain function to an Awaiter.
type AwaiterFunc[O any] func(ctx context.Context) (O, error)

// Await implements Awaiter.
func (f AwaiterFunc[O]) Await(ctx context.Context) (O, error) { return f(ctx) }

// Ready returns an Awaiter that resolves immediately with v and a nil
// error, useful for combinators and tests that already have a value in
// hand.
func Ready[O any](v O) Awaiter[O] {
	return AwaiterFunc[O](func(context.Context) (O, error) { return v, nil })
}

// Failed returns an Awaiter that resolves immediately with err.
func Failed[O any](err error) Awaiter[O] {
	return AwaiterFunc[O](func(context.Context) (O, error) {
		var zero O
		return zero, err
	})
}

// Event is the ListenerEvent instantiation every Listener in this
// package emits: its upgrade payload is an Awaiter[O], its error
// payload is the standard `error` interface.
type Event[O any] = event.ListenerEvent[Awaiter[O], error]

// Listener is a lazy, demand-driven sequence of Events produced by one
// bound socket. Per connection sequence: Next must return a Listened
// event first, then zero or more Incoming/Error events, then exactly
// one terminal Closed event. Calling Next again after a Closed event
// has been observed is undefined; the TCP listener in this module
// returns a graceful Closed event together with ErrListenerClosed
// rather than panicking, to keep accidental re-polling harmless.
type Listener[O any] interface {
	// Next blocks until the next event is available or ctx is done.
	Next(ctx context.Context) (Event[O], error)
	// Close releases the underlying socket. It is safe to call
	// concurrently with Next; a blocked Next returns promptly.
	Close() error
	// Addr is the bound local address.
	Addr() net.Addr
}

// Transport is the capability a producer of connections exposes.
type Transport[O any] interface {
	// Listen reserves a local socket, synchronously. The returned
	// Listener emits Listened(addr) as its first event.
	Listen(addr net.Addr) (Listener[O], error)
	// Connect prepares an outbound handshake task. No network I/O is
	// required before the caller calls Awaiter.Await, but an
	// implementation may start eagerly. The returned ConnectedPoint is
	// fixed now and never changes, even though the Awaiter hasn't
	// resolved yet.
	Connect(ctx context.Context, addr net.Addr) (Awaiter[O], event.ConnectedPoint, error)
}
