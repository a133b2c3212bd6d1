package transport

import (
	"context"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// ErrFunc is applied to every error source a transport can produce:
// synchronous Listen/Connect failures, Awaiter failures, and
// ListenerEvent Error/Closed(err) payloads. It is applied at most once
// per error value.
type ErrFunc func(error) error

// MapErr consumes inner and returns a Transport whose successful
// outputs are identical to inner's, with every error passed through f.
func MapErr[O any](inner Transport[O], f ErrFunc) Transport[O] {
	return &mapErrTransport[O]{inner: inner, f: f}
}

type mapErrTransport[O any] struct {
	inner Transport[O]
	f     ErrFunc
}

func (t *mapErrTransport[O]) Connect(ctx context.Context, addr net.Addr) (Awaiter[O], event.ConnectedPoint, error) {
	inner, point, err := t.inner.Connect(ctx, addr)
	if err != nil {
		var zero event.ConnectedPoint
		return nil, zero, t.f(err)
	}
	f := t.f
	return AwaiterFunc[O](func(ctx context.Context) (O, error) {
		o, err := inner.Await(ctx)
		if err != nil {
			var zero O
			return zero, f(err)
		}
		return o, nil
	}), point, nil
}

func (t *mapErrTransport[O]) Listen(addr net.Addr) (Listener[O], error) {
	inner, err := t.inner.Listen(addr)
	if err != nil {
		return nil, t.f(err)
	}
	return &mapErrListener[O]{inner: inner, f: t.f}, nil
}

type mapErrListener[O any] struct {
	inner Listener[O]
	f     ErrFunc
}

func (l *mapErrListener[O]) Next(ctx context.Context) (Event[O], error) {
	ev, err := l.inner.Next(ctx)
	if err != nil {
		var zero Event[O]
		return zero, l.f(err)
	}
	f := l.f

	if ev.IsIncoming() {
		ev = event.MapUpgrade[Awaiter[O], Awaiter[O]](ev, func(inner Awaiter[O]) Awaiter[O] {
			return AwaiterFunc[O](func(ctx context.Context) (O, error) {
				o, err := inner.Await(ctx)
				if err != nil {
					var zero O
					return zero, f(err)
				}
				return o, nil
			})
		})
	}
	if ev.IsError() {
		ev = event.MapErr[Awaiter[O], error, error](ev, f)
	}
	if ev.IsClosed() {
		ev = event.MapCloseErr[Awaiter[O], error](ev, f)
	}
	return ev, nil
}

func (l *mapErrListener[O]) Close() error   { return l.inner.Close() }
func (l *mapErrListener[O]) Addr() net.Addr { return l.inner.Addr() }
