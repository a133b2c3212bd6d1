package transport

import (
	"context"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// AndThenFunc is given the inner transport's Output and ConnectedPoint
// only after the inner Awaiter has resolved successfully; it returns a
// second Awaiter, which AndThen then awaits in turn. It must not be
// invoked if the inner Awaiter fails.
type AndThenFunc[O, O2 any] func(ctx context.Context, o O, point event.ConnectedPoint) (Awaiter[O2], error)

// AndThen consumes inner and returns a Transport whose Output comes
// from a second Awaiter, the one f returns. The composite error is a
// *CombinatorError tagging which stage failed.
func AndThen[O, O2 any](inner Transport[O], f AndThenFunc[O, O2]) Transport[O2] {
	return &andThenTransport[O, O2]{inner: inner, f: f}
}

type andThenTransport[O, O2 any] struct {
	inner Transport[O]
	f     AndThenFunc[O, O2]
}

func (t *andThenTransport[O, O2]) Connect(ctx context.Context, addr net.Addr) (Awaiter[O2], event.ConnectedPoint, error) {
	inner, point, err := t.inner.Connect(ctx, addr)
	if err != nil {
		var zero event.ConnectedPoint
		return nil, zero, &CombinatorError{FromMapFuture: false, Err: err}
	}
	f := t.f
	return AwaiterFunc[O2](func(ctx context.Context) (O2, error) {
		o, err := inner.Await(ctx)
		if err != nil {
			var zero O2
			return zero, &CombinatorError{FromMapFuture: false, Err: err}
		}
		next, err := f(ctx, o, point)
		if err != nil {
			var zero O2
			return zero, &CombinatorError{FromMapFuture: true, Err: err}
		}
		o2, err := next.Await(ctx)
		if err != nil {
			var zero O2
			return zero, &CombinatorError{FromMapFuture: true, Err: err}
		}
		return o2, nil
	}), point, nil
}

func (t *andThenTransport[O, O2]) Listen(addr net.Addr) (Listener[O2], error) {
	inner, err := t.inner.Listen(addr)
	if err != nil {
		return nil, &CombinatorError{FromMapFuture: false, Err: err}
	}
	return &andThenListener[O, O2]{inner: inner, f: t.f}, nil
}

type andThenListener[O, O2 any] struct {
	inner Listener[O]
	f     AndThenFunc[O, O2]
}

func (l *andThenListener[O, O2]) Next(ctx context.Context) (Event[O2], error) {
	ev, err := l.inner.Next(ctx)
	if err != nil {
		var zero Event[O2]
		return zero, &CombinatorError{FromMapFuture: false, Err: err}
	}
	f := l.f

	out := event.MapUpgrade[Awaiter[O], Awaiter[O2]](ev, func(inner Awaiter[O]) Awaiter[O2] {
		local, remote := ev.IncomingAddrs()
		point := event.NewListenerPoint(local, remote)
		return AwaiterFunc[O2](func(ctx context.Context) (O2, error) {
			o, err := inner.Await(ctx)
			if err != nil {
				var zero O2
				return zero, &CombinatorError{FromMapFuture: false, Err: err}
			}
			next, err := f(ctx, o, point)
			if err != nil {
				var zero O2
				return zero, &CombinatorError{FromMapFuture: true, Err: err}
			}
			o2, err := next.Await(ctx)
			if err != nil {
				var zero O2
				return zero, &CombinatorError{FromMapFuture: true, Err: err}
			}
			return o2, nil
		})
	})
	if out.IsError() {
		out = event.MapErr[Awaiter[O2], error, error](out, func(err error) error {
			return &CombinatorError{FromMapFuture: false, Err: err}
		})
	}
	if out.IsClosed() {
		out = event.MapCloseErr[Awaiter[O2], error](out, func(err error) error {
			return &CombinatorError{FromMapFuture: false, Err: err}
		})
	}
	return out, nil
}

func (l *andThenListener[O, O2]) Close() error   { return l.inner.Close() }
func (l *andThenListener[O, O2]) Addr() net.Addr { return l.inner.Addr() }
