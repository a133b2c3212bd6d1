// Package negotiate wraps the multistream-select wire format owned by
// github.com/multiformats/go-multistream; the rest of this module
// only depends on the narrow DialerSelect/ListenerSelect/
// NegotiationError surface below, never on multistream's own types
// directly.
package negotiate

import (
	"context"
	"fmt"
	"io"

	ms "github.com/multiformats/go-multistream"
)

// Negotiated is the byte stream handed back once a protocol has been
// agreed on. multistream-select does its own internal buffering, so
// the returned value is byte-transparent immediately; there is no
// separate flush step to wait on.
type Negotiated = io.ReadWriteCloser

// NegotiationError is returned on protocol mismatch, premature close
// during negotiation, or malformed wire data.
type NegotiationError struct {
	Err error
}

func (e *NegotiationError) Error() string { return fmt.Sprintf("negotiation failed: %v", e.Err) }
func (e *NegotiationError) Unwrap() error { return e.Err }

type selectResult struct {
	proto string
	rw    Negotiated
	err   error
}

// DialerSelect tries protocols, in order, against rw and returns the
// first one the remote accepts; this is the dialer's entrypoint,
// corresponding to the consumed collaborator's DialerSelectFuture.
func DialerSelect(ctx context.Context, rw io.ReadWriteCloser, protocols []string) (string, Negotiated, error) {
	resCh := make(chan selectResult, 1)
	go func() {
		proto, err := ms.SelectOneOf(protocols, rw)
		if err != nil {
			resCh <- selectResult{err: &NegotiationError{Err: err}}
			return
		}
		resCh <- selectResult{proto: proto, rw: rw}
	}()

	select {
	case <-ctx.Done():
		rw.Close()
		return "", nil, ctx.Err()
	case r := <-resCh:
		return r.proto, r.rw, r.err
	}
}

// ListenerSelect offers protocols to rw and returns whichever the
// remote selected; the listener's entrypoint, corresponding to the
// consumed collaborator's ListenerSelectFuture.
func ListenerSelect(ctx context.Context, rw io.ReadWriteCloser, protocols []string) (string, Negotiated, error) {
	resCh := make(chan selectResult, 1)
	go func() {
		mux := ms.NewMultistreamMuxer[string]()
		for _, p := range protocols {
			mux.AddHandler(p, nil)
		}
		proto, _, err := mux.Negotiate(rw)
		if err != nil {
			resCh <- selectResult{err: &NegotiationError{Err: err}}
			return
		}
		resCh <- selectResult{proto: proto, rw: rw}
	}()

	select {
	case <-ctx.Done():
		rw.Close()
		return "", nil, ctx.Err()
	case r := <-resCh:
		return r.proto, r.rw, r.err
	}
}
