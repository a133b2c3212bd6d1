package transport

import (
	"context"
	"net"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// Boxed is the type-erased terminal form of a transport pipeline: it
// satisfies Transport[O] regardless of how many Map/MapErr/AndThen
// layers produced it, and normalizes every error to a *BoxedError so
// heterogeneous transports can share one container with a single error
// type. Since Go interfaces are already polymorphic, Boxed's job is
// narrow: it fixes the error type and gives pipelines a concrete,
// nameable terminal type rather than a bare `transport.Transport[O]`
// value.
type Boxed[O any] struct {
	inner Transport[O]
}

var _ Transport[struct{}] = (*Boxed[struct{}])(nil)

// NewBoxed wraps inner, normalizing its errors to *BoxedError.
func NewBoxed[O any](inner Transport[O]) *Boxed[O] {
	return &Boxed[O]{inner: inner}
}

func (b *Boxed[O]) Connect(ctx context.Context, addr net.Addr) (Awaiter[O], event.ConnectedPoint, error) {
	inner, point, err := b.inner.Connect(ctx, addr)
	if err != nil {
		var zero event.ConnectedPoint
		return nil, zero, &BoxedError{Err: err}
	}
	return AwaiterFunc[O](func(ctx context.Context) (O, error) {
		o, err := inner.Await(ctx)
		if err != nil {
			var zero O
			return zero, &BoxedError{Err: err}
		}
		return o, nil
	}), point, nil
}

func (b *Boxed[O]) Listen(addr net.Addr) (Listener[O], error) {
	inner, err := b.inner.Listen(addr)
	if err != nil {
		return nil, &BoxedError{Err: err}
	}
	return &boxedListener[O]{inner: inner}, nil
}

type boxedListener[O any] struct {
	inner Listener[O]
}

func (l *boxedListener[O]) Next(ctx context.Context) (Event[O], error) {
	ev, err := l.inner.Next(ctx)
	if err != nil {
		var zero Event[O]
		return zero, &BoxedError{Err: err}
	}
	out := event.MapUpgrade[Awaiter[O], Awaiter[O]](ev, func(inner Awaiter[O]) Awaiter[O] {
		return AwaiterFunc[O](func(ctx context.Context) (O, error) {
			o, err := inner.Await(ctx)
			if err != nil {
				var zero O
				return zero, &BoxedError{Err: err}
			}
			return o, nil
		})
	})
	if out.IsError() {
		out = event.MapErr[Awaiter[O], error, error](out, func(err error) error { return &BoxedError{Err: err} })
	}
	if out.IsClosed() {
		out = event.MapCloseErr[Awaiter[O], error](out, func(err error) error { return &BoxedError{Err: err} })
	}
	return out, nil
}

func (l *boxedListener[O]) Close() error   { return l.inner.Close() }
func (l *boxedListener[O]) Addr() net.Addr { return l.inner.Addr() }
