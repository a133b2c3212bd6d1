// Package upgrade defines the Upgrade capability, negotiate-then-
// transform a byte stream into some Output, and the small library of
// upgrades built from it: Ready, Pending, SelectUpgrade, and Either. apply.go drives the actual multistream-style negotiation
// (core/negotiate) and runs the selected upgrade.
package upgrade

import (
	"context"

	"github.com/TheNoobiCat/go-airio/core/event"
)

// Info is a finite, deterministic, ordered sequence of protocol-name
// tokens. Order matters during negotiation: for a dialer it's the
// preference order tried against the remote.
type Info []string

// Upgrade is the capability to negotiate-and-transform a stream S into
// some Output. S is the stream type the Upgrade consumes; when run
// through Apply, S is io.ReadWriteCloser and the stream passed to
// UpgradeInbound/UpgradeOutbound is the core/negotiate.Negotiated value
// the negotiator returned.
type Upgrade[S, O any] interface {
	// ProtocolInfo returns the protocols this upgrade offers/accepts.
	ProtocolInfo() Info
	// UpgradeInbound runs the inbound entrypoint: this side accepted
	// the connection. info is the protocol string the negotiator
	// selected, which must be one of ProtocolInfo()'s tokens.
	UpgradeInbound(ctx context.Context, stream S, info string) (O, error)
	// UpgradeOutbound runs the outbound entrypoint: this side dialed.
	UpgradeOutbound(ctx context.Context, stream S, info string) (O, error)
}

// RunEntrypoint picks UpgradeInbound or UpgradeOutbound based on the
// caller's dialer/listener role.
func RunEntrypoint[S, O any](ctx context.Context, u Upgrade[S, O], stream S, info string, role event.Endpoint) (O, error) {
	if role.IsDialer() {
		return u.UpgradeOutbound(ctx, stream, info)
	}
	return u.UpgradeInbound(ctx, stream, info)
}
