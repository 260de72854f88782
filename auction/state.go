package auction

import (
	"fmt"

	"github.com/holiman/uint256"
)

// State is the per-auction record: the live epoch, its init price and the
// time it started.
type State struct {
	EpochID   uint64
	InitPrice *uint256.Int
	StartTime uint64
}

// Intent is what a caller believes about the auction when it acts. Actions
// built on stale beliefs are rejected rather than executed at a surprise price.
type Intent struct {
	EpochID  uint64       // Epoch the caller observed
	Deadline uint64       // Unix seconds after which the action is void
	MaxPrice *uint256.Int // Highest price the caller accepts
}

// NewState opens epoch zero with the given init price at now.
func NewState(initPrice *uint256.Int, now uint64) State {
	return State{InitPrice: initPrice.Clone(), StartTime: now}
}

// Price returns the current price of the live epoch.
func (s State) Price(p Params, now uint64) *uint256.Int {
	return Price(s.InitPrice, s.StartTime, p.EpochPeriod, now)
}

// Check validates an intent against the live epoch and returns the price the
// caller will pay. Checks run in order deadline, epoch, price.
func (s State) Check(p Params, in Intent, now uint64) (*uint256.Int, error) {
	if now > in.Deadline {
		return nil, fmt.Errorf("%w: now %d, deadline %d", ErrDeadlinePassed, now, in.Deadline)
	}
	if in.EpochID != s.EpochID {
		return nil, fmt.Errorf("%w: expected %d, live %d", ErrEpochMismatch, in.EpochID, s.EpochID)
	}
	price := s.Price(p, now)
	if in.MaxPrice == nil || price.Gt(in.MaxPrice) {
		return nil, fmt.Errorf("%w: price %s", ErrMaxPriceExceeded, price.Dec())
	}
	return price, nil
}

// Advance closes the live epoch at paid and opens the next one at now.
func (s State) Advance(paid *uint256.Int, p Params, now uint64) State {
	return State{
		EpochID:   s.EpochID + 1,
		InitPrice: NextInitPrice(paid, p),
		StartTime: now,
	}
}
