// Package builder implements the pipeline that chains a raw transport
// through authentication, zero or more application upgrades, and an
// optional stream multiplexer: Builder -> AuthenticatedBuilder ->
// Multiplexed, each exposed as its own named type so that meaningless
// sequences (multiplexing before authenticating, applying after
// multiplexing) can't be expressed at all.
package builder

import (
	"context"
	"io"

	"github.com/TheNoobiCat/go-airio/core/event"
	"github.com/TheNoobiCat/go-airio/core/muxer"
	"github.com/TheNoobiCat/go-airio/core/peer"
	"github.com/TheNoobiCat/go-airio/core/transport"
	"github.com/TheNoobiCat/go-airio/core/upgrade"
)

// Authenticated pairs a PeerId with the stream produced underneath it.
// It is threaded through every Apply/Multiplex step unchanged; only
// Conn's type changes as the pipeline grows.
type Authenticated[D any] struct {
	Peer peer.ID
	Conn D
}

// Builder anchors a pipeline on a raw-byte-stream transport.
type Builder[C io.ReadWriteCloser] struct {
	inner transport.Transport[C]
}

// Upgrade enters Builder over inner. This is the pipeline's only
// entrypoint.
func Upgrade[C io.ReadWriteCloser](inner transport.Transport[C]) *Builder[C] {
	return &Builder[C]{inner: inner}
}

// Authenticate wires auth, an Upgrade that must produce
// Authenticated[D], a PeerId plus the stream D further steps operate
// on. It selects UpgradeApply's inbound or outbound entrypoint from
// the connection's Endpoint: the first legal, and only, transition out
// of Builder.
func Authenticate[C io.ReadWriteCloser, D io.ReadWriteCloser](b *Builder[C], auth upgrade.Upgrade[io.ReadWriteCloser, Authenticated[D]]) *AuthenticatedBuilder[D] {
	wrapped := transport.AndThen[C, Authenticated[D]](b.inner,
		func(ctx context.Context, raw C, point event.ConnectedPoint) (transport.Awaiter[Authenticated[D]], error) {
			var a *upgrade.Apply[Authenticated[D]]
			if point.IsDialer() {
				a = upgrade.NewOutbound[Authenticated[D]](raw, auth)
			} else {
				a = upgrade.NewInbound[Authenticated[D]](raw, auth)
			}
			return transport.AwaiterFunc[Authenticated[D]](a.Run), nil
		})
	return &AuthenticatedBuilder[D]{inner: wrapped}
}

// AuthenticatedBuilder carries a PeerId plus a D-typed stream through
// zero or more Apply steps.
type AuthenticatedBuilder[D io.ReadWriteCloser] struct {
	inner transport.Transport[Authenticated[D]]
}

// Apply wires another negotiated Upgrade[_, D2] on top of an
// authenticated pipeline, threading the PeerId through unchanged. It
// may be called any number of times; each call narrows D further.
func Apply[D io.ReadWriteCloser, D2 io.ReadWriteCloser](b *AuthenticatedBuilder[D], u upgrade.Upgrade[io.ReadWriteCloser, D2]) *AuthenticatedBuilder[D2] {
	wrapped := transport.AndThen[Authenticated[D], Authenticated[D2]](b.inner,
		func(ctx context.Context, cur Authenticated[D], point event.ConnectedPoint) (transport.Awaiter[Authenticated[D2]], error) {
			var a *upgrade.Apply[D2]
			if point.IsDialer() {
				a = upgrade.NewOutbound[D2](cur.Conn, u)
			} else {
				a = upgrade.NewInbound[D2](cur.Conn, u)
			}
			peerID := cur.Peer
			return transport.AwaiterFunc[Authenticated[D2]](func(ctx context.Context) (Authenticated[D2], error) {
				out, err := a.Run(ctx)
				if err != nil {
					var zero Authenticated[D2]
					return zero, err
				}
				return Authenticated[D2]{Peer: peerID, Conn: out}, nil
			}), nil
		})
	return &AuthenticatedBuilder[D2]{inner: wrapped}
}

// Multiplex wires a terminal Upgrade[_, M] producing a StreamMuxer,
// ending the pipeline: a Multiplexed can only be dialed, listened on,
// or boxed; it cannot be Apply'd or Authenticate'd again.
func Multiplex[D io.ReadWriteCloser, M muxer.StreamMuxer](b *AuthenticatedBuilder[D], u upgrade.Upgrade[io.ReadWriteCloser, M]) *Multiplexed[M] {
	wrapped := transport.AndThen[Authenticated[D], Authenticated[M]](b.inner,
		func(ctx context.Context, cur Authenticated[D], point event.ConnectedPoint) (transport.Awaiter[Authenticated[M]], error) {
			var a *upgrade.Apply[M]
			if point.IsDialer() {
				a = upgrade.NewOutbound[M](cur.Conn, u)
			} else {
				a = upgrade.NewInbound[M](cur.Conn, u)
			}
			peerID := cur.Peer
			return transport.AwaiterFunc[Authenticated[M]](func(ctx context.Context) (Authenticated[M], error) {
				out, err := a.Run(ctx)
				if err != nil {
					var zero Authenticated[M]
					return zero, err
				}
				return Authenticated[M]{Peer: peerID, Conn: out}, nil
			}), nil
		})
	return &Multiplexed[M]{inner: wrapped}
}

// Multiplexed is the pipeline's terminal form: Output is
// Authenticated[M], pairing the remote's PeerId with its stream
// muxer.
type Multiplexed[M muxer.StreamMuxer] struct {
	inner transport.Transport[Authenticated[M]]
}

// Transport returns the underlying Transport, to Dial/Listen directly
// without boxing away M's concrete type.
func (m *Multiplexed[M]) Transport() transport.Transport[Authenticated[M]] { return m.inner }

// Boxed type-erases M to muxer.StreamMuxerBox and the transport itself
// to *transport.Boxed, for callers that need to hold heterogeneous
// pipelines (different concrete muxer types) in one container.
func (m *Multiplexed[M]) Boxed() *transport.Boxed[Authenticated[muxer.StreamMuxerBox]] {
	mapped := transport.Map[Authenticated[M], Authenticated[muxer.StreamMuxerBox]](m.inner,
		func(a Authenticated[M], _ event.ConnectedPoint) Authenticated[muxer.StreamMuxerBox] {
			return Authenticated[muxer.StreamMuxerBox]{Peer: a.Peer, Conn: muxer.Box(a.Conn)}
		})
	return transport.NewBoxed[Authenticated[muxer.StreamMuxerBox]](mapped)
}
