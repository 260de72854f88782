// Package emission tracks how many reward tokens a rig has minted and
// computes what is owed for a holding interval.
package emission

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
)

// Accrue returns elapsed * rate * multiplier / Precision. The rate is
// sampled once for the whole interval.
func Accrue(elapsed uint64, rate, multiplier *uint256.Int) *uint256.Int {
	if elapsed == 0 || rate == nil || multiplier == nil {
		return new(uint256.Int)
	}
	scaled, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(elapsed), rate)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	out, overflow := new(uint256.Int).MulDivOverflow(scaled, multiplier, auction.Precision)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

// Ledger holds the minted-so-far counter of one rig. Minting is two-phase:
// Schedule adds the mint to the action's batch, Commit records it once the
// batch has been applied.
type Ledger struct {
	asset       ledger.Asset
	startTime   uint64
	totalMinted *uint256.Int
}

// NewLedger creates a ledger for asset that started at startTime.
func NewLedger(asset ledger.Asset, startTime uint64) *Ledger {
	return &Ledger{asset: asset, startTime: startTime, totalMinted: new(uint256.Int)}
}

// Restore rebuilds a ledger from persisted values.
func Restore(asset ledger.Asset, startTime uint64, totalMinted *uint256.Int) *Ledger {
	return &Ledger{asset: asset, startTime: startTime, totalMinted: totalMinted.Clone()}
}

// Schedule adds a mint of amount to to the batch. Nothing is scheduled for
// the zero address or a zero amount; the returned value is what will be
// minted.
func (l *Ledger) Schedule(b *ledger.Batch, to common.Address, amount *uint256.Int) *uint256.Int {
	if to == (common.Address{}) || amount == nil || amount.IsZero() {
		return new(uint256.Int)
	}
	b.AddMint(l.asset, to, amount)
	return amount.Clone()
}

// Commit records a mint that has been applied.
func (l *Ledger) Commit(amount *uint256.Int) {
	if amount == nil {
		return
	}
	l.totalMinted.Add(l.totalMinted, amount)
}

// Elapsed returns the seconds between the schedule start and now.
func (l *Ledger) Elapsed(now uint64) uint64 {
	if now <= l.startTime {
		return 0
	}
	return now - l.startTime
}

// TotalMinted returns the cumulative minted amount.
func (l *Ledger) TotalMinted() *uint256.Int { return l.totalMinted.Clone() }

// StartTime returns the immutable schedule start.
func (l *Ledger) StartTime() uint64 { return l.startTime }

// Asset returns the minted asset.
func (l *Ledger) Asset() ledger.Asset { return l.asset }
