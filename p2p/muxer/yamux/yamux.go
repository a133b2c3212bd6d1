// Package yamux adapts github.com/libp2p/go-yamux/v5 to
// core/muxer.StreamMuxer, using a zero-cost wrapper (type substream
// ym.Stream) over context-based Poll* methods.
package yamux

import (
	"context"
	"errors"
	"fmt"
	"net"

	ym "github.com/libp2p/go-yamux/v5"

	"github.com/TheNoobiCat/go-airio/core/muxer"
)

// substream implements muxer.Substream over a *yamux.Stream.
type substream ym.Stream

var _ muxer.Substream = (*substream)(nil)

func (s *substream) yamux() *ym.Stream { return (*ym.Stream)(s) }

func (s *substream) Read(b []byte) (int, error)  { return s.yamux().Read(b) }
func (s *substream) Write(b []byte) (int, error) { return s.yamux().Write(b) }
func (s *substream) Close() error                { return s.yamux().Close() }
func (s *substream) CloseWrite() error           { return s.yamux().CloseWrite() }
func (s *substream) Reset() error                { return s.yamux().Reset() }

// Muxer implements muxer.StreamMuxer over a *yamux.Session. A
// background goroutine drains AcceptStream into a buffered channel so
// PollInbound can honor ctx cancellation even though the underlying
// yamux API blocks without one; the buffering this requires matches
// core/muxer.StreamMuxer's documented contract.
type Muxer struct {
	session *ym.Session

	inbound     chan *ym.Stream
	acceptErrCh chan error
}

var _ muxer.StreamMuxer = (*Muxer)(nil)

// Client wraps conn as the dialer side of a yamux session. yamux needs
// deadline support for its keepalive and write timeouts, so conn must
// be a net.Conn, not a bare byte stream.
func Client(conn net.Conn, cfg *ym.Config) (*Muxer, error) {
	sess, err := ym.Client(conn, cfg, nil)
	if err != nil {
		return nil, err
	}
	return newMuxer(sess), nil
}

// Server wraps conn as the listener side of a yamux session.
func Server(conn net.Conn, cfg *ym.Config) (*Muxer, error) {
	sess, err := ym.Server(conn, cfg, nil)
	if err != nil {
		return nil, err
	}
	return newMuxer(sess), nil
}

func newMuxer(sess *ym.Session) *Muxer {
	m := &Muxer{
		session:     sess,
		inbound:     make(chan *ym.Stream, 16),
		acceptErrCh: make(chan error, 1),
	}
	go m.acceptLoop()
	return m
}

func (m *Muxer) acceptLoop() {
	for {
		s, err := m.session.AcceptStream()
		if err != nil {
			m.acceptErrCh <- err
			close(m.inbound)
			return
		}
		m.inbound <- s
	}
}

func (m *Muxer) PollInbound(ctx context.Context) (muxer.Substream, error) {
	select {
	case s, ok := <-m.inbound:
		if !ok {
			select {
			case err := <-m.acceptErrCh:
				return nil, err
			default:
				return nil, errors.New("yamux: session closed")
			}
		}
		return (*substream)(s), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Muxer) PollOutbound(ctx context.Context) (muxer.Substream, error) {
	s, err := m.session.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return (*substream)(s), nil
}

// Poll never yields an event, since yamux has no muxer-level event
// stream this package's Event type can represent yet. It returns an
// error once ctx is done or the session is closed.
func (m *Muxer) Poll(ctx context.Context) (muxer.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.session.CloseChan():
		return nil, errors.New("yamux: session closed")
	}
}

func (m *Muxer) PollClose(ctx context.Context) error {
	if err := m.session.Close(); err != nil {
		return fmt.Errorf("yamux: close: %w", err)
	}
	return nil
}
