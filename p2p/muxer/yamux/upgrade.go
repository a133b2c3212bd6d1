package yamux

import (
	"context"
	"fmt"
	"io"
	"net"

	ym "github.com/libp2p/go-yamux/v5"

	"github.com/TheNoobiCat/go-airio/core/upgrade"
)

// ProtocolID is the multistream token this package negotiates under.
const ProtocolID = "/yamux/1.0.0"

// Upgrade is a core/upgrade.Upgrade that turns a negotiated byte stream
// into a *Muxer, suitable for core/builder.Multiplex.
type Upgrade struct {
	cfg *ym.Config
}

// NewUpgrade builds an Upgrade. A nil cfg uses yamux's defaults.
func NewUpgrade(cfg *ym.Config) *Upgrade {
	if cfg == nil {
		cfg = ym.DefaultConfig()
	}
	return &Upgrade{cfg: cfg}
}

var _ upgrade.Upgrade[io.ReadWriteCloser, *Muxer] = (*Upgrade)(nil)

func (u *Upgrade) ProtocolInfo() upgrade.Info { return upgrade.Info{ProtocolID} }

func (u *Upgrade) UpgradeOutbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*Muxer, error) {
	conn, err := asNetConn(stream)
	if err != nil {
		return nil, err
	}
	return Client(conn, u.cfg)
}

func (u *Upgrade) UpgradeInbound(ctx context.Context, stream io.ReadWriteCloser, info string) (*Muxer, error) {
	conn, err := asNetConn(stream)
	if err != nil {
		return nil, err
	}
	return Server(conn, u.cfg)
}

// asNetConn recovers the net.Conn yamux needs for deadlines. The
// upgrades in front of this one (negotiation, authentication) all pass
// the accepted or dialed socket through unchanged, so the assertion
// holds for every pipeline this module assembles.
func asNetConn(stream io.ReadWriteCloser) (net.Conn, error) {
	conn, ok := stream.(net.Conn)
	if !ok {
		return nil, fmt.Errorf("yamux: stream of type %T does not support deadlines", stream)
	}
	return conn, nil
}
