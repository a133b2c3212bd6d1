// Package airio assembles the transport/upgrade/multiplex pipeline
// into a single convenience constructor, configured with a
// functional-options Config/Option/ChainOptions pattern.
package airio

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/TheNoobiCat/go-airio/core/builder"
	"github.com/TheNoobiCat/go-airio/core/transport"
	"github.com/TheNoobiCat/go-airio/p2p/muxer/yamux"
	"github.com/TheNoobiCat/go-airio/p2p/net/upgrader"
	"github.com/TheNoobiCat/go-airio/p2p/security/plain"
	"github.com/TheNoobiCat/go-airio/p2p/transport/tcp"
)

// defaultMaxConcurrentHandshakes bounds how many accepted connections
// may be mid-handshake at once on a single listener.
const defaultMaxConcurrentHandshakes = 16

// Option configures a Config.
type Option func(*Config) error

// ChainOptions folds multiple options into one, short-circuiting on
// the first error.
func ChainOptions(opts ...Option) Option {
	return func(cfg *Config) error {
		for _, opt := range opts {
			if opt == nil {
				continue
			}
			if err := opt(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// Config holds the assembled pipeline's settings. Use the With*
// options to build one; New fills in anything left unset.
type Config struct {
	identity   *plain.Identity
	tcpOptions []tcp.Option
}

// Node is the assembled pipeline: dial or listen for TCP connections
// that come out the other end authenticated and multiplexed.
type Node struct {
	Identity *plain.Identity
	pipeline *builder.Multiplexed[*yamux.Muxer]
}

// Pipeline exposes the underlying core/builder.Multiplexed, for
// callers that want direct Dial/Listen access instead of Node's
// convenience wrappers.
func (n *Node) Pipeline() *builder.Multiplexed[*yamux.Muxer] { return n.pipeline }

// Dial connects to addr (a *net.TCPAddr) and drives the full
// authenticate-then-multiplex pipeline, returning the resulting muxer
// together with the remote's verified PeerId.
func (n *Node) Dial(ctx context.Context, addr net.Addr) (builder.Authenticated[*yamux.Muxer], error) {
	awaiter, _, err := n.pipeline.Transport().Connect(ctx, addr)
	if err != nil {
		var zero builder.Authenticated[*yamux.Muxer]
		return zero, err
	}
	return awaiter.Await(ctx)
}

// Listener accepts authenticated, multiplexed connections, skipping
// any non-Incoming events a transport.Listener may emit.
type Listener struct {
	inner transport.Listener[builder.Authenticated[*yamux.Muxer]]
}

// Next blocks until the next peer connects and finishes the pipeline,
// or ctx is done.
func (l *Listener) Next(ctx context.Context) (builder.Authenticated[*yamux.Muxer], error) {
	for {
		ev, err := l.inner.Next(ctx)
		if err != nil {
			var zero builder.Authenticated[*yamux.Muxer]
			return zero, err
		}
		if !ev.IsIncoming() {
			continue
		}
		return ev.Upgrade().Await(ctx)
	}
}

// Close releases the underlying socket.
func (l *Listener) Close() error { return l.inner.Close() }

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

// Listen binds addr (a *net.TCPAddr) and returns a Listener whose
// Next resolves each accepted connection all the way through
// authentication and multiplexing, with at most
// defaultMaxConcurrentHandshakes handshakes in flight at once.
func (n *Node) Listen(addr net.Addr) (*Listener, error) {
	ln, err := n.pipeline.Transport().Listen(addr)
	if err != nil {
		return nil, err
	}
	return &Listener{inner: upgrader.Wrap(ln, defaultMaxConcurrentHandshakes)}, nil
}

// New builds a Node from opts, falling back to a fresh random identity
// and default TCP settings when not overridden.
func New(opts ...Option) (*Node, error) {
	cfg := &Config{}
	if err := ChainOptions(opts...)(cfg); err != nil {
		return nil, fmt.Errorf("airio: applying options: %w", err)
	}
	if cfg.identity == nil {
		id, err := plain.NewIdentity()
		if err != nil {
			return nil, fmt.Errorf("airio: generating identity: %w", err)
		}
		cfg.identity = id
	}

	rawTransport, err := tcp.New(cfg.tcpOptions...)
	if err != nil {
		return nil, fmt.Errorf("airio: building tcp transport: %w", err)
	}

	auth := plain.NewUpgrade(cfg.identity)
	authenticated := builder.Authenticate[net.Conn, io.ReadWriteCloser](builder.Upgrade[net.Conn](rawTransport), auth)

	muxUpgrade := yamux.NewUpgrade(nil)
	multiplexed := builder.Multiplex[io.ReadWriteCloser, *yamux.Muxer](authenticated, muxUpgrade)

	return &Node{Identity: cfg.identity, pipeline: multiplexed}, nil
}
