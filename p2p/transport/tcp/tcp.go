// Package tcp implements core/transport.Transport[net.Conn] over plain
// TCP sockets, with keepalive/linger tuning and an accept loop that
// retries on temporary errors.
package tcp

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	tec "github.com/jbenet/go-temp-err-catcher"

	"github.com/TheNoobiCat/go-airio/core/event"
	"github.com/TheNoobiCat/go-airio/core/transport"
)

var log = logging.Logger("tcp-tpt")

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultKeepAlivePeriod = 30 * time.Second
)

// Option configures a Transport.
type Option func(*Transport) error

// WithConnectionTimeout overrides the default outbound dial timeout.
func WithConnectionTimeout(d time.Duration) Option {
	return func(t *Transport) error {
		t.connectTimeout = d
		return nil
	}
}

// WithLinger sets SO_LINGER (in seconds) on accepted and dialed sockets.
// A negative value leaves the OS default in place.
func WithLinger(sec int) Option {
	return func(t *Transport) error {
		t.lingerSec = sec
		return nil
	}
}

// WithKeepAlivePeriod overrides how often TCP keepalive probes are
// sent on idle connections. A zero or negative period disables
// keepalives entirely.
func WithKeepAlivePeriod(d time.Duration) Option {
	return func(t *Transport) error {
		t.keepAlivePeriod = d
		return nil
	}
}

// WithMetrics registers Prometheus counters tracking connections
// opened and closed by direction.
func WithMetrics() Option {
	return func(t *Transport) error {
		t.metrics = newMetrics()
		return nil
	}
}

// Transport is a plain-TCP core/transport.Transport[net.Conn].
type Transport struct {
	connectTimeout  time.Duration
	lingerSec       int
	keepAlivePeriod time.Duration
	dialer          net.Dialer
	metrics         *metrics
}

// New builds a Transport with opts applied over sane defaults.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		connectTimeout:  defaultConnectTimeout,
		lingerSec:       -1,
		keepAlivePeriod: defaultKeepAlivePeriod,
	}
	for _, o := range opts {
		if err := o(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// tuneSocket applies the transport's linger and keepalive settings to a
// freshly dialed or accepted connection. Tuning failures are non-fatal:
// they are logged and the connection is used as-is.
func (t *Transport) tuneSocket(conn *net.TCPConn) {
	if t.lingerSec >= 0 {
		if err := conn.SetLinger(t.lingerSec); err != nil {
			log.Warnw("setting SO_LINGER", "error", err)
		}
	}
	if t.keepAlivePeriod <= 0 {
		if err := conn.SetKeepAlive(false); err != nil {
			log.Warnw("disabling TCP keepalive", "error", err)
		}
		return
	}
	if err := conn.SetKeepAlive(true); err != nil {
		log.Warnw("enabling TCP keepalive", "error", err)
		return
	}
	// OpenBSD has no per-socket keepalive interval knob.
	if runtime.GOOS != "openbsd" {
		if err := conn.SetKeepAlivePeriod(t.keepAlivePeriod); err != nil {
			log.Warnw("setting TCP keepalive period", "error", err)
		}
	}
}

var _ transport.Transport[net.Conn] = (*Transport)(nil)

// Connect dials addr, which must be a *net.TCPAddr.
func (t *Transport) Connect(ctx context.Context, addr net.Addr) (transport.Awaiter[net.Conn], event.ConnectedPoint, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		var zero event.ConnectedPoint
		return nil, zero, fmt.Errorf("tcp: Connect requires a *net.TCPAddr, got %T", addr)
	}
	point := event.NewDialerPoint(tcpAddr.String())

	return transport.AwaiterFunc[net.Conn](func(ctx context.Context) (net.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
		defer cancel()
		conn, err := t.dialer.DialContext(dialCtx, "tcp", tcpAddr.String())
		if err != nil {
			return nil, err
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			t.tuneSocket(tc)
		}
		if t.metrics != nil {
			conn = t.metrics.wrap(conn, false)
		}
		return conn, nil
	}), point, nil
}

// Listen binds addr, which must be a *net.TCPAddr.
func (t *Transport) Listen(addr net.Addr) (transport.Listener[net.Conn], error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("tcp: Listen requires a *net.TCPAddr, got %T", addr)
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	l := &listener{
		ln:       ln,
		t:        t,
		incoming: make(chan transport.Event[net.Conn], 16),
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	go l.acceptLoop()
	return l, nil
}

type listener struct {
	ln *net.TCPListener
	t  *Transport

	incoming  chan transport.Event[net.Conn]
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

var _ transport.Listener[net.Conn] = (*listener)(nil)

func (l *listener) acceptLoop() {
	defer close(l.incoming)

	l.incoming <- event.Listened[transport.Awaiter[net.Conn], error](l.ln.Addr().String())

	var catcher tec.TempErrCatcher
	for {
		conn, err := l.ln.AcceptTCP()
		if err != nil {
			if l.ctx.Err() != nil {
				l.incoming <- event.Closed[transport.Awaiter[net.Conn], error](nil)
				return
			}
			if catcher.IsTemporary(err) {
				log.Infof("temporary accept error: %s", err)
				continue
			}
			l.incoming <- event.Closed[transport.Awaiter[net.Conn], error](err)
			return
		}
		catcher.Reset()

		l.t.tuneSocket(conn)

		var wrapped net.Conn = conn
		if l.t.metrics != nil {
			wrapped = l.t.metrics.wrap(conn, true)
		}

		local := conn.LocalAddr().String()
		remote := conn.RemoteAddr().String()
		l.incoming <- event.Incoming[transport.Awaiter[net.Conn], error](local, remote, transport.Ready[net.Conn](wrapped))
	}
}

func (l *listener) Next(ctx context.Context) (transport.Event[net.Conn], error) {
	select {
	case ev, ok := <-l.incoming:
		if !ok {
			return event.Closed[transport.Awaiter[net.Conn], error](nil), transport.ErrListenerClosed
		}
		return ev, nil
	case <-ctx.Done():
		var zero transport.Event[net.Conn]
		return zero, ctx.Err()
	}
}

func (l *listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.cancel()
		err = l.ln.Close()
	})
	return err
}

func (l *listener) Addr() net.Addr { return l.ln.Addr() }
