package upgrade

import "context"

// Ready declares a single protocol name, does no I/O, and passes the
// stream through unchanged. It is infallible.
type Ready[S any] struct {
	Protocol string
}

// NewReady builds a Ready upgrade advertising protocol.
func NewReady[S any](protocol string) Ready[S] {
	return Ready[S]{Protocol: protocol}
}

// ProtocolInfo implements Upgrade.
func (r Ready[S]) ProtocolInfo() Info { return Info{r.Protocol} }

// UpgradeInbound implements Upgrade: the stream passes through.
func (r Ready[S]) UpgradeInbound(ctx context.Context, stream S, info string) (S, error) {
	return stream, nil
}

// UpgradeOutbound implements Upgrade: the stream passes through.
func (r Ready[S]) UpgradeOutbound(ctx context.Context, stream S, info string) (S, error) {
	return stream, nil
}

var _ Upgrade[struct{}, struct{}] = Ready[struct{}]{}
