package muxer

import (
	"context"
	"fmt"
	"io"
)

// SubstreamBox is a type-erased Substream: it wraps any concrete
// Substream implementation behind this package's own type, so boxing
// a muxer never loses read/write/close-write/reset behavior.
type SubstreamBox struct {
	inner Substream
}

// BoxSubstream wraps s.
func BoxSubstream(s Substream) SubstreamBox { return SubstreamBox{inner: s} }

func (s SubstreamBox) Read(p []byte) (int, error)  { return s.inner.Read(p) }
func (s SubstreamBox) Write(p []byte) (int, error) { return s.inner.Write(p) }
func (s SubstreamBox) Close() error                { return s.inner.Close() }
func (s SubstreamBox) CloseWrite() error           { return s.inner.CloseWrite() }
func (s SubstreamBox) Reset() error                { return s.inner.Reset() }

var _ Substream = SubstreamBox{}
var _ io.ReadWriteCloser = SubstreamBox{}

// boxedEvent is the only Event implementation StreamMuxerBox ever
// forwards; it exists purely to satisfy the interface, since Event
// currently has no variants.
type boxedEvent struct{}

func (boxedEvent) isMuxerEvent() {}

// MuxerError normalizes a boxed muxer's error to an opaque wrapper,
// preserving the cause for errors.Unwrap/errors.As.
type MuxerError struct {
	Err error
}

func (e *MuxerError) Error() string { return fmt.Sprintf("muxer error: %v", e.Err) }
func (e *MuxerError) Unwrap() error { return e.Err }

// StreamMuxerBox is a type-erased StreamMuxer: SubstreamBox substreams,
// a single normalized error type, usable wherever heterogeneous muxer
// implementations must share one container.
type StreamMuxerBox struct {
	inner StreamMuxer
}

// Box wraps any StreamMuxer implementation.
func Box(m StreamMuxer) StreamMuxerBox { return StreamMuxerBox{inner: m} }

func (b StreamMuxerBox) PollInbound(ctx context.Context) (Substream, error) {
	s, err := b.inner.PollInbound(ctx)
	if err != nil {
		return nil, &MuxerError{Err: err}
	}
	return BoxSubstream(s), nil
}

func (b StreamMuxerBox) PollOutbound(ctx context.Context) (Substream, error) {
	s, err := b.inner.PollOutbound(ctx)
	if err != nil {
		return nil, &MuxerError{Err: err}
	}
	return BoxSubstream(s), nil
}

func (b StreamMuxerBox) Poll(ctx context.Context) (Event, error) {
	_, err := b.inner.Poll(ctx)
	if err != nil {
		return nil, &MuxerError{Err: err}
	}
	return boxedEvent{}, nil
}

func (b StreamMuxerBox) PollClose(ctx context.Context) error {
	if err := b.inner.PollClose(ctx); err != nil {
		return &MuxerError{Err: err}
	}
	return nil
}

var _ StreamMuxer = StreamMuxerBox{}
