package transport

import (
	"context"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// MapFunc runs exactly once per established connection, after the
// inner Awaiter resolves successfully. The ConnectedPoint passed to it
// was fixed at connect/Incoming time, before the inner Awaiter was
// ever awaited.
type MapFunc[O, O2 any] func(O, event.ConnectedPoint) O2

// Map consumes inner and returns a Transport whose Output is produced
// by applying f to inner's Output and the connection's ConnectedPoint.
// Error type and behavior are preserved unchanged.
func Map[O, O2 any](inner Transport[O], f MapFunc[O, O2]) Transport[O2] {
	return &mapTransport[O, O2]{inner: inner, f: f}
}

type mapTransport[O, O2 any] struct {
	inner Transport[O]
	f     MapFunc[O, O2]
}

func (t *mapTransport[O, O2]) Connect(ctx context.Context, addr net.Addr) (Awaiter[O2], event.ConnectedPoint, error) {
	inner, point, err := t.inner.Connect(ctx, addr)
	if err != nil {
		var zero event.ConnectedPoint
		return nil, zero, err
	}
	return AwaiterFunc[O2](func(ctx context.Context) (O2, error) {
		o, err := inner.Await(ctx)
		if err != nil {
			var zero O2
			return zero, err
		}
		return t.f(o, point), nil
	}), point, nil
}

func (t *mapTransport[O, O2]) Listen(addr net.Addr) (Listener[O2], error) {
	inner, err := t.inner.Listen(addr)
	if err != nil {
		return nil, err
	}
	return &mapListener[O, O2]{inner: inner, f: t.f}, nil
}

type mapListener[O, O2 any] struct {
	inner Listener[O]
	f     MapFunc[O, O2]
}

func (l *mapListener[O, O2]) Next(ctx context.Context) (Event[O2], error) {
	ev, err := l.inner.Next(ctx)
	if err != nil {
		var zero Event[O2]
		return zero, err
	}
	f := l.f
	return event.MapUpgrade[Awaiter[O], Awaiter[O2]](ev, func(inner Awaiter[O]) Awaiter[O2] {
		local, remote := ev.IncomingAddrs()
		point := event.NewListenerPoint(local, remote)
		return AwaiterFunc[O2](func(ctx context.Context) (O2, error) {
			o, err := inner.Await(ctx)
			if err != nil {
				var zero O2
				return zero, err
			}
			return f(o, point), nil
		})
	}), nil
}

func (l *mapListener[O, O2]) Close() error   { return l.inner.Close() }
func (l *mapListener[O, O2]) Addr() net.Addr { return l.inner.Addr() }
