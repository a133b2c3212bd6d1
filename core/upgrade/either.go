package upgrade

import "context"

// Either represents "this particular Upgrade instance is A or B", as
// opposed to SelectUpgrade, which offers both and lets negotiation pick
// one. Its ProtocolInfo emits only the live variant's own tokens.
type Either[S, OL, OR any] struct {
	isRight bool
	left    Upgrade[S, OL]
	right   Upgrade[S, OR]
}

// NewEitherLeft builds an Either whose live variant is u.
func NewEitherLeft[S, OL, OR any](u Upgrade[S, OL]) Either[S, OL, OR] {
	return Either[S, OL, OR]{left: u}
}

// NewEitherRight builds an Either whose live variant is u.
func NewEitherRight[S, OL, OR any](u Upgrade[S, OR]) Either[S, OL, OR] {
	return Either[S, OL, OR]{isRight: true, right: u}
}

// ProtocolInfo implements Upgrade.
func (e Either[S, OL, OR]) ProtocolInfo() Info {
	if e.isRight {
		return e.right.ProtocolInfo()
	}
	return e.left.ProtocolInfo()
}

// UpgradeInbound implements Upgrade. Failures are tagged with the live
// variant, as *EitherError.
func (e Either[S, OL, OR]) UpgradeInbound(ctx context.Context, stream S, info string) (EitherValue[OL, OR], error) {
	var zero EitherValue[OL, OR]
	if e.isRight {
		v, err := e.right.UpgradeInbound(ctx, stream, info)
		if err != nil {
			return zero, RightError(err)
		}
		return Right[OL, OR](v), nil
	}
	v, err := e.left.UpgradeInbound(ctx, stream, info)
	if err != nil {
		return zero, LeftError(err)
	}
	return Left[OL, OR](v), nil
}

// UpgradeOutbound implements Upgrade. Failures are tagged with the live
// variant, as *EitherError.
func (e Either[S, OL, OR]) UpgradeOutbound(ctx context.Context, stream S, info string) (EitherValue[OL, OR], error) {
	var zero EitherValue[OL, OR]
	if e.isRight {
		v, err := e.right.UpgradeOutbound(ctx, stream, info)
		if err != nil {
			return zero, RightError(err)
		}
		return Right[OL, OR](v), nil
	}
	v, err := e.left.UpgradeOutbound(ctx, stream, info)
	if err != nil {
		return zero, LeftError(err)
	}
	return Left[OL, OR](v), nil
}
