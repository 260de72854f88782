// Package auction implements the Dutch-auction price clock shared by every
// rig variant.
//
// Price is never stored. It is a pure function of the epoch's init price,
// its start time, the epoch period and the current time:
//
//	price = initPrice - initPrice * elapsed / epochPeriod
//
// and drops to zero once the epoch period has fully elapsed. Settling an
// epoch seeds the next one with the paid price scaled by the configured
// multiplier, clamped to [minInitPrice, AbsMaxInitPrice].
package auction

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// MinEpochPeriod is the shortest accepted epoch period in seconds (10 minutes).
	MinEpochPeriod uint64 = 10 * 60

	// MaxEpochPeriod is the longest accepted epoch period in seconds (365 days).
	MaxEpochPeriod uint64 = 365 * 24 * 60 * 60
)

var (
	// Precision is the 1e18 fixed-point scale used for multipliers.
	Precision = uint256.NewInt(1_000_000_000_000_000_000)

	// MinPriceMultiplier is 1.1x in Precision units.
	MinPriceMultiplier = uint256.NewInt(1_100_000_000_000_000_000)

	// MaxPriceMultiplier is 3x in Precision units.
	MaxPriceMultiplier = uint256.NewInt(3_000_000_000_000_000_000)

	// MinInitPriceFloor is the smallest accepted minimum init price.
	MinInitPriceFloor = uint256.NewInt(1_000_000)

	// AbsMaxInitPrice caps every init price at 2^192 - 1.
	AbsMaxInitPrice = new(uint256.Int).Rsh(new(uint256.Int).SetAllOne(), 64)
)

// Params are the immutable pricing parameters of one auction.
type Params struct {
	EpochPeriod     uint64       // Seconds for the price to decay to zero
	PriceMultiplier *uint256.Int // Next init price = paid * multiplier / Precision
	MinInitPrice    *uint256.Int // Floor for every init price
}

// Validate checks that all parameters are within their accepted ranges.
func (p Params) Validate() error {
	if p.EpochPeriod < MinEpochPeriod || p.EpochPeriod > MaxEpochPeriod {
		return fmt.Errorf("%w: %d", ErrInvalidEpochPeriod, p.EpochPeriod)
	}
	if p.PriceMultiplier == nil || p.PriceMultiplier.Lt(MinPriceMultiplier) || p.PriceMultiplier.Gt(MaxPriceMultiplier) {
		return ErrInvalidPriceMultiplier
	}
	if p.MinInitPrice == nil || p.MinInitPrice.Lt(MinInitPriceFloor) || p.MinInitPrice.Gt(AbsMaxInitPrice) {
		return ErrInvalidMinInitPrice
	}
	return nil
}

// Price returns the decayed price at now for an epoch that started at
// startTime with initPrice. A now earlier than startTime is treated as the
// start of the epoch.
func Price(initPrice *uint256.Int, startTime, epochPeriod, now uint64) *uint256.Int {
	if initPrice == nil || initPrice.IsZero() || epochPeriod == 0 {
		return new(uint256.Int)
	}
	var elapsed uint64
	if now > startTime {
		elapsed = now - startTime
	}
	if elapsed > epochPeriod {
		return new(uint256.Int)
	}
	decay, _ := new(uint256.Int).MulDivOverflow(initPrice, uint256.NewInt(elapsed), uint256.NewInt(epochPeriod))
	return new(uint256.Int).Sub(initPrice, decay)
}

// NextInitPrice derives the init price of the next epoch from the price
// paid to settle the current one. A zero payment still resets to the
// minimum so an auction can never lock at zero.
func NextInitPrice(paid *uint256.Int, p Params) *uint256.Int {
	if paid == nil || paid.IsZero() {
		return p.MinInitPrice.Clone()
	}
	next, overflow := new(uint256.Int).MulDivOverflow(paid, p.PriceMultiplier, Precision)
	if overflow || next.Gt(AbsMaxInitPrice) {
		return AbsMaxInitPrice.Clone()
	}
	if next.Lt(p.MinInitPrice) {
		return p.MinInitPrice.Clone()
	}
	return next
}
