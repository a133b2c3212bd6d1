package airio

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TheNoobiCat/go-airio/core/builder"
	"github.com/TheNoobiCat/go-airio/p2p/muxer/yamux"
	"github.com/TheNoobiCat/go-airio/p2p/security/plain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestNodeDialListenLoopback drives the full tcp -> plain -> yamux
// pipeline over a real socket between two Nodes: each side must
// observe the other's PeerId, and a substream opened by the dialer
// must be accepted by the listener with bytes intact in both
// directions.
func TestNodeDialListenLoopback(t *testing.T) {
	serverID := plain.NewIdentityFromSeed([]byte("airio-loopback-server-seed-32byt"))
	clientID := plain.NewIdentityFromSeed([]byte("airio-loopback-client-seed-32byt"))

	server, err := New(WithIdentity(serverID))
	require.NoError(t, err)
	client, err := New(WithIdentity(clientID), WithConnectTimeout(2*time.Second))
	require.NoError(t, err)

	ln, err := server.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	acceptedCh := make(chan builder.Authenticated[*yamux.Muxer], 1)
	errCh := make(chan error, 1)
	go func() {
		accepted, err := ln.Next(ctx)
		if err != nil {
			errCh <- err
			return
		}
		acceptedCh <- accepted
	}()

	dialed, err := client.Dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer dialed.Conn.PollClose(ctx)

	var accepted builder.Authenticated[*yamux.Muxer]
	select {
	case accepted = <-acceptedCh:
	case err := <-errCh:
		t.Fatalf("listener never finished the pipeline: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener never accepted the dialer's connection")
	}
	defer accepted.Conn.PollClose(ctx)

	require.Equal(t, serverID.ID.String(), dialed.Peer.String(), "dialer should observe the listener's PeerId")
	require.Equal(t, clientID.ID.String(), accepted.Peer.String(), "listener should observe the dialer's PeerId")

	outbound, err := dialed.Conn.PollOutbound(ctx)
	require.NoError(t, err)
	defer outbound.Close()

	var inbound io.ReadWriteCloser
	inboundErrCh := make(chan error, 1)
	inboundOkCh := make(chan io.ReadWriteCloser, 1)
	go func() {
		s, err := accepted.Conn.PollInbound(ctx)
		if err != nil {
			inboundErrCh <- err
			return
		}
		inboundOkCh <- s
	}()

	msg := []byte("airio substream loopback")
	_, err = outbound.Write(msg)
	require.NoError(t, err)

	select {
	case inbound = <-inboundOkCh:
	case err := <-inboundErrCh:
		t.Fatalf("listener never accepted the dialer's substream: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never accepted the dialer's substream")
	}
	defer inbound.Close()

	buf := make([]byte, len(msg))
	_, err = io.ReadFull(inbound, buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf)

	reply := []byte("and back again")
	go func() { _, _ = inbound.Write(reply) }()
	replyBuf := make([]byte, len(reply))
	_, err = io.ReadFull(outbound, replyBuf)
	require.NoError(t, err)
	require.Equal(t, reply, replyBuf)
}
