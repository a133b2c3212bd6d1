package builder

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheNoobiCat/go-airio/core/event"
	"github.com/TheNoobiCat/go-airio/core/muxer"
	"github.com/TheNoobiCat/go-airio/core/transport"
	"github.com/TheNoobiCat/go-airio/core/upgrade"
)

// pipeTransport is a minimal core/transport.Transport[net.Conn] backed
// by an in-memory net.Pipe, used so builder tests don't need a real
// socket.
type pipeTransport struct {
	accept chan net.Conn
}

func newPipeTransport() *pipeTransport { return &pipeTransport{accept: make(chan net.Conn, 1)} }

func (p *pipeTransport) Connect(ctx context.Context, addr net.Addr) (transport.Awaiter[net.Conn], event.ConnectedPoint, error) {
	point := event.NewDialerPoint(addr.String())
	return transport.AwaiterFunc[net.Conn](func(ctx context.Context) (net.Conn, error) {
		a, b := net.Pipe()
		p.accept <- b
		return a, nil
	}), point, nil
}

func (p *pipeTransport) Listen(addr net.Addr) (transport.Listener[net.Conn], error) {
	return &pipeListener{addr: addr, accept: p.accept, events: make(chan transport.Event[net.Conn], 4)}, nil
}

type pipeListener struct {
	addr   net.Addr
	accept chan net.Conn
	once   bool
	events chan transport.Event[net.Conn]
}

func (l *pipeListener) Next(ctx context.Context) (transport.Event[net.Conn], error) {
	if !l.once {
		l.once = true
		return event.Listened[transport.Awaiter[net.Conn], error](l.addr.String()), nil
	}
	select {
	case conn := <-l.accept:
		return event.Incoming[transport.Awaiter[net.Conn], error]("local", "remote", transport.Ready[net.Conn](conn)), nil
	case <-ctx.Done():
		var zero transport.Event[net.Conn]
		return zero, ctx.Err()
	}
}

func (l *pipeListener) Close() error   { return nil }
func (l *pipeListener) Addr() net.Addr { return l.addr }

// loopbackAddr is a trivial net.Addr for the in-memory pipe transport.
type loopbackAddr string

func (a loopbackAddr) Network() string { return "pipe" }
func (a loopbackAddr) String() string  { return string(a) }

func TestPipelineDialerListenerLoopback(t *testing.T) {
	raw := newPipeTransport()

	authUpgrade := identityUpgrade{}

	pipeline := Authenticate[net.Conn, io.ReadWriteCloser](Upgrade[net.Conn](raw), authUpgrade)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := loopbackAddr("mem://loopback")
	ln, err := pipeline.inner.Listen(addr)
	require.NoError(t, err)
	defer ln.Close()

	_, err = ln.Next(ctx)
	require.NoError(t, err)

	acceptedCh := make(chan Authenticated[io.ReadWriteCloser], 1)
	go func() {
		ev, err := ln.Next(ctx)
		require.NoError(t, err)
		require.True(t, ev.IsIncoming())
		a, err := ev.Upgrade().Await(ctx)
		require.NoError(t, err)
		acceptedCh <- a
	}()

	awaiter, point, err := pipeline.inner.Connect(ctx, addr)
	require.NoError(t, err)
	require.True(t, point.IsDialer())

	dialed, err := awaiter.Await(ctx)
	require.NoError(t, err)
	defer dialed.Conn.Close()

	accepted := <-acceptedCh
	defer accepted.Conn.Close()

	require.Equal(t, dialed.Peer, accepted.Peer)

	msg := []byte("builder loopback")
	go func() { _, _ = dialed.Conn.Write(msg) }()
	buf := make([]byte, len(msg))
	_, err = io.ReadFull(accepted.Conn, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)
}

// identityUpgrade is a fake authentication upgrade: it negotiates
// "/auth/1.0.0" and produces an Authenticated carrying a fixed,
// test-only PeerId, so builder tests don't need a real keypair
// handshake to exercise Authenticate/Apply/Multiplex wiring.
type identityUpgrade struct{}

func (identityUpgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{"/auth/1.0.0"} }

func (identityUpgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (Authenticated[io.ReadWriteCloser], error) {
	return Authenticated[io.ReadWriteCloser]{Conn: stream}, nil
}

func (identityUpgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (Authenticated[io.ReadWriteCloser], error) {
	return Authenticated[io.ReadWriteCloser]{Conn: stream}, nil
}

var _ muxer.StreamMuxer = (*fakeMuxer)(nil)

type fakeMuxer struct{ closed bool }

func (*fakeMuxer) PollInbound(ctx context.Context) (muxer.Substream, error)  { return nil, nil }
func (*fakeMuxer) PollOutbound(ctx context.Context) (muxer.Substream, error) { return nil, nil }
func (*fakeMuxer) Poll(ctx context.Context) (muxer.Event, error)             { return nil, nil }
func (m *fakeMuxer) PollClose(ctx context.Context) error                     { m.closed = true; return nil }

// muxerUpgrade wraps a fixed *fakeMuxer as a terminal Upgrade, letting
// Multiplex/Boxed be exercised without a real wire protocol.
type muxerUpgrade struct{ m *fakeMuxer }

func (muxerUpgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{"/fake-mux/1.0.0"} }

func (u muxerUpgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*fakeMuxer, error) {
	return u.m, nil
}

func (u muxerUpgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*fakeMuxer, error) {
	return u.m, nil
}

// recordingUpgrade passes the stream through and records when it ran,
// so tests can assert stage ordering along the pipeline.
type recordingUpgrade struct {
	name  string
	order *[]string
}

func (u recordingUpgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{u.name} }

func (u recordingUpgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (io.ReadWriteCloser, error) {
	*u.order = append(*u.order, u.name)
	return stream, nil
}

func (u recordingUpgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (io.ReadWriteCloser, error) {
	*u.order = append(*u.order, u.name)
	return stream, nil
}

type recordingAuth struct {
	order *[]string
}

func (u recordingAuth) ProtocolInfo() upgrade.Info { return upgrade.Info{"/auth/1.0.0"} }

func (u recordingAuth) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (Authenticated[io.ReadWriteCloser], error) {
	*u.order = append(*u.order, "/auth/1.0.0")
	return Authenticated[io.ReadWriteCloser]{Conn: stream}, nil
}

func (u recordingAuth) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (Authenticated[io.ReadWriteCloser], error) {
	*u.order = append(*u.order, "/auth/1.0.0")
	return Authenticated[io.ReadWriteCloser]{Conn: stream}, nil
}

type recordingMuxUpgrade struct {
	m     *fakeMuxer
	order *[]string
}

func (u recordingMuxUpgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{"/mux/1.0.0"} }

func (u recordingMuxUpgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*fakeMuxer, error) {
	*u.order = append(*u.order, "/mux/1.0.0")
	return u.m, nil
}

func (u recordingMuxUpgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*fakeMuxer, error) {
	*u.order = append(*u.order, "/mux/1.0.0")
	return u.m, nil
}

// TestPipelineUpgradeOrder asserts that along authenticate -> apply ->
// multiplex, each stage runs strictly after the previous one, on both
// sides of the connection.
func TestPipelineUpgradeOrder(t *testing.T) {
	raw := newPipeTransport()

	var dialOrder, listenOrder []string
	wantOrder := []string{"/auth/1.0.0", "/app/1.0.0", "/mux/1.0.0"}

	// Two identically-shaped pipelines over the same raw transport, so
	// each side records into its own slice.
	dialPipeline := Multiplex[io.ReadWriteCloser, *fakeMuxer](
		Apply[io.ReadWriteCloser, io.ReadWriteCloser](
			Authenticate[net.Conn, io.ReadWriteCloser](Upgrade[net.Conn](raw), recordingAuth{order: &dialOrder}),
			recordingUpgrade{name: "/app/1.0.0", order: &dialOrder}),
		recordingMuxUpgrade{m: &fakeMuxer{}, order: &dialOrder})

	listenPipeline := Multiplex[io.ReadWriteCloser, *fakeMuxer](
		Apply[io.ReadWriteCloser, io.ReadWriteCloser](
			Authenticate[net.Conn, io.ReadWriteCloser](Upgrade[net.Conn](raw), recordingAuth{order: &listenOrder}),
			recordingUpgrade{name: "/app/1.0.0", order: &listenOrder}),
		recordingMuxUpgrade{m: &fakeMuxer{}, order: &listenOrder})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := loopbackAddr("mem://order")
	ln, err := listenPipeline.Transport().Listen(addr)
	require.NoError(t, err)
	defer ln.Close()
	_, err = ln.Next(ctx)
	require.NoError(t, err)

	acceptedCh := make(chan error, 1)
	go func() {
		ev, err := ln.Next(ctx)
		if err == nil {
			_, err = ev.Upgrade().Await(ctx)
		}
		acceptedCh <- err
	}()

	awaiter, _, err := dialPipeline.Transport().Connect(ctx, addr)
	require.NoError(t, err)
	_, err = awaiter.Await(ctx)
	require.NoError(t, err)
	require.NoError(t, <-acceptedCh)

	require.Equal(t, wantOrder, dialOrder)
	require.Equal(t, wantOrder, listenOrder)
}

func TestMultiplexThenBoxedBuilds(t *testing.T) {
	raw := newPipeTransport()
	authUpgrade := identityUpgrade{}
	authenticated := Authenticate[net.Conn, io.ReadWriteCloser](Upgrade[net.Conn](raw), authUpgrade)
	m := &fakeMuxer{}
	multiplexed := Multiplex[io.ReadWriteCloser, *fakeMuxer](authenticated, muxerUpgrade{m: m})
	boxed := multiplexed.Boxed()
	require.NotNil(t, boxed)
}
