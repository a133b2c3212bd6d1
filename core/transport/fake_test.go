package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// fakeAddr is a minimal net.Addr for tests that don't need a real socket.
type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

// fakeTransport is an in-memory Transport[string] used across this
// package's combinator tests. Connect fails with connectErr if set,
// otherwise yields connectFn's result or connectVal; Listen replays a
// scripted sequence of events.
type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	connectVal string
	connectFn  func(ctx context.Context) (string, error)

	events   []Event[string]
	listenFn func() ([]Event[string], error)
}

func (t *fakeTransport) Connect(ctx context.Context, addr net.Addr) (Awaiter[string], event.ConnectedPoint, error) {
	if t.connectErr != nil {
		return nil, event.ConnectedPoint{}, t.connectErr
	}
	point := event.NewDialerPoint(addr.String())
	fn := t.connectFn
	val := t.connectVal
	return AwaiterFunc[string](func(ctx context.Context) (string, error) {
		if fn != nil {
			return fn(ctx)
		}
		return val, nil
	}), point, nil
}

func (t *fakeTransport) Listen(addr net.Addr) (Listener[string], error) {
	evs := t.events
	if t.listenFn != nil {
		var err error
		evs, err = t.listenFn()
		if err != nil {
			return nil, err
		}
	}
	return &fakeListener{addr: addr, events: evs}, nil
}

type fakeListener struct {
	addr   net.Addr
	events []Event[string]
	idx    int
}

func (l *fakeListener) Next(ctx context.Context) (Event[string], error) {
	if l.idx >= len(l.events) {
		return Event[string]{}, errors.New("fakeListener: exhausted")
	}
	ev := l.events[l.idx]
	l.idx++
	return ev, nil
}

func (l *fakeListener) Close() error   { return nil }
func (l *fakeListener) Addr() net.Addr { return l.addr }
