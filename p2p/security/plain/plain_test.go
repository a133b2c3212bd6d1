package plain

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandshakeExchangesPeerIDs(t *testing.T) {
	dialConn, listenConn := net.Pipe()
	defer dialConn.Close()
	defer listenConn.Close()

	dialID, err := NewIdentity()
	require.NoError(t, err)
	listenID, err := NewIdentity()
	require.NoError(t, err)

	dialUpgrade := NewUpgrade(dialID)
	listenUpgrade := NewUpgrade(listenID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		peer string
		err  error
	}
	dialCh := make(chan result, 1)
	go func() {
		a, err := dialUpgrade.UpgradeOutbound(ctx, dialConn, ProtocolID)
		dialCh <- result{a.Peer.String(), err}
	}()

	listenAuth, err := listenUpgrade.UpgradeInbound(ctx, listenConn, ProtocolID)
	require.NoError(t, err)
	require.Equal(t, dialID.ID, listenAuth.Peer)

	dr := <-dialCh
	require.NoError(t, dr.err)
	require.Equal(t, listenID.ID.String(), dr.peer)
}

func TestIdentityFromSeedIsDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	a := NewIdentityFromSeed(seed)
	b := NewIdentityFromSeed(seed)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, a.Pub, b.Pub)
}
