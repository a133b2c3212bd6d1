package upgrade

import (
	"context"
	"fmt"
)

// SelectUpgrade is the sum of two upgrades offered together: its
// ProtocolInfo is Left's tokens followed by Right's tokens, and
// whichever one the negotiator picks is the one that runs. Output is
// EitherValue[OL, OR]; a failure is an *EitherError tagging the branch
// that produced it.
//
// Invoking this upgrade with an info token that belongs to neither
// side is a programming error and panics: it can only happen if a
// caller hand-constructs an info string instead of using one returned
// by ProtocolInfo.
type SelectUpgrade[S, OL, OR any] struct {
	Left  Upgrade[S, OL]
	Right Upgrade[S, OR]
}

// NewSelectUpgrade builds a SelectUpgrade offering both left and right.
func NewSelectUpgrade[S, OL, OR any](left Upgrade[S, OL], right Upgrade[S, OR]) *SelectUpgrade[S, OL, OR] {
	return &SelectUpgrade[S, OL, OR]{Left: left, Right: right}
}

// ProtocolInfo implements Upgrade.
func (s *SelectUpgrade[S, OL, OR]) ProtocolInfo() Info {
	out := make(Info, 0, len(s.Left.ProtocolInfo())+len(s.Right.ProtocolInfo()))
	out = append(out, s.Left.ProtocolInfo()...)
	out = append(out, s.Right.ProtocolInfo()...)
	return out
}

func (s *SelectUpgrade[S, OL, OR]) isLeftToken(info string) (left, ok bool) {
	for _, t := range s.Left.ProtocolInfo() {
		if t == info {
			return true, true
		}
	}
	for _, t := range s.Right.ProtocolInfo() {
		if t == info {
			return false, true
		}
	}
	return false, false
}

// UpgradeInbound implements Upgrade, running the side info names.
// Failures are tagged with the branch that produced them, as
// *EitherError.
func (s *SelectUpgrade[S, OL, OR]) UpgradeInbound(ctx context.Context, stream S, info string) (EitherValue[OL, OR], error) {
	isLeft, ok := s.isLeftToken(info)
	if !ok {
		panic(fmt.Sprintf("upgrade: SelectUpgrade asked to run unknown protocol %q", info))
	}
	var zero EitherValue[OL, OR]
	if isLeft {
		v, err := s.Left.UpgradeInbound(ctx, stream, info)
		if err != nil {
			return zero, LeftError(err)
		}
		return Left[OL, OR](v), nil
	}
	v, err := s.Right.UpgradeInbound(ctx, stream, info)
	if err != nil {
		return zero, RightError(err)
	}
	return Right[OL, OR](v), nil
}

// UpgradeOutbound implements Upgrade, running the side info names.
// Failures are tagged with the branch that produced them, as
// *EitherError.
func (s *SelectUpgrade[S, OL, OR]) UpgradeOutbound(ctx context.Context, stream S, info string) (EitherValue[OL, OR], error) {
	isLeft, ok := s.isLeftToken(info)
	if !ok {
		panic(fmt.Sprintf("upgrade: SelectUpgrade asked to run unknown protocol %q", info))
	}
	var zero EitherValue[OL, OR]
	if isLeft {
		v, err := s.Left.UpgradeOutbound(ctx, stream, info)
		if err != nil {
			return zero, LeftError(err)
		}
		return Left[OL, OR](v), nil
	}
	v, err := s.Right.UpgradeOutbound(ctx, stream, info)
	if err != nil {
		return zero, RightError(err)
	}
	return Right[OL, OR](v), nil
}
