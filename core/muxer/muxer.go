// Package muxer defines the StreamMuxer capability: multiplexing one
// authenticated connection into many bidirectional substreams, plus
// the type-erased StreamMuxerBox/SubstreamBox boundary used once a
// pipeline is boxed (core/builder's Multiplexed.Boxed).
package muxer

import (
	"context"
	"io"
)

// Substream is a bidirectional byte stream carried inside a muxer.
type Substream interface {
	io.ReadWriteCloser
	// CloseWrite half-closes the write side, signaling EOF to the peer
	// while still allowing reads.
	CloseWrite() error
	// Reset aborts the substream immediately, telling the peer it was
	// not gracefully closed.
	Reset() error
}

// Event is StreamMuxer's poll-level event. It is intentionally empty:
// a forward-compatibility seam. An Event carries no information today;
// the only value of this type is the placeholder StreamMuxerBox.Poll
// returns when its inner muxer's Poll succeeds. Callers must not reason "this branch is
// unreachable" from that fact in a way that would break if a future
// version of this package adds a variant.
type Event interface {
	isMuxerEvent()
}

// StreamMuxer multiplexes a single authenticated connection into many
// substreams. A muxer is the sole owner of its underlying connection:
// PollInbound/PollOutbound/Poll/PollClose of the same instance must be
// serialized by the caller (single-owner discipline, not enforced by
// this interface); callers needing fan-out should have one goroutine
// own the muxer and forward substreams/events over channels.
type StreamMuxer interface {
	// PollInbound blocks until the next substream opened by the remote
	// is available, ctx is done, or the muxer is closed. Implementations
	// must buffer pending inbound substreams (up to their own configured
	// limit) rather than drop them when nothing is polling.
	PollInbound(ctx context.Context) (Substream, error)
	// PollOutbound opens a new substream, possibly blocking on remote
	// flow control. Concurrent calls from independent callers are
	// independent; interleaving is allowed.
	PollOutbound(ctx context.Context) (Substream, error)
	// Poll blocks until a muxer-level event is available. Event has no
	// variants, so any event returned carries no information.
	Poll(ctx context.Context) (Event, error)
	// PollClose initiates graceful teardown. Once it returns a nil
	// error, subsequent calls to the other three methods must return a
	// non-nil error without panicking or blocking forever.
	PollClose(ctx context.Context) error
}
