// Package fees splits auction payments between recipients in basis points
// and keeps the pull balances of recipients that must not receive direct
// transfers.
package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/Heesho/mineport-monorepo-sub003/ledger"
)

// Divisor is the basis-point denominator.
const Divisor = 10_000

// Delivery selects how a recipient is paid.
type Delivery int

const (
	// Push transfers the share directly. Only for configuration-controlled recipients.
	Push Delivery = iota
	// Pull credits a claimable balance. Required for any recipient chosen by
	// prior competitive action, whose address could reject transfers.
	Pull
)

// String returns "push" or "pull".
func (d Delivery) String() string {
	if d == Pull {
		return "pull"
	}
	return "push"
}

// Recipient is one entry of a fee split.
type Recipient struct {
	Account   common.Address
	Bps       uint64
	Delivery  Delivery
	Remainder bool // Receives payment minus every other share; Bps is ignored
}

// Allocation is a computed share.
type Allocation struct {
	Account  common.Address
	Amount   *uint256.Int
	Delivery Delivery
}

// Split divides payment between recipients. Every non-remainder share is
// payment * bps / Divisor, or zero for the zero address; the remainder
// recipient absorbs all rounding so the allocations always sum to payment.
// Allocations are returned in recipient order.
func Split(payment *uint256.Int, recipients []Recipient) ([]Allocation, error) {
	if payment == nil {
		payment = new(uint256.Int)
	}

	remainderIdx := -1
	var totalBps uint64
	for i, r := range recipients {
		if r.Remainder {
			if remainderIdx >= 0 {
				return nil, ErrMultipleRemainders
			}
			remainderIdx = i
			continue
		}
		if r.Bps > Divisor-totalBps {
			return nil, fmt.Errorf("%w: %d after %d", ErrBpsOverflow, r.Bps, totalBps)
		}
		totalBps += r.Bps
	}
	if remainderIdx < 0 {
		return nil, ErrNoRemainder
	}
	if recipients[remainderIdx].Account == (common.Address{}) {
		return nil, ErrZeroRemainderAccount
	}

	allocs := make([]Allocation, len(recipients))
	distributed := new(uint256.Int)
	divisor := uint256.NewInt(Divisor)
	for i, r := range recipients {
		allocs[i] = Allocation{Account: r.Account, Delivery: r.Delivery, Amount: new(uint256.Int)}
		if i == remainderIdx || r.Account == (common.Address{}) || r.Bps == 0 {
			continue
		}
		// bps <= Divisor, so the result never exceeds payment.
		share, _ := new(uint256.Int).MulDivOverflow(payment, uint256.NewInt(r.Bps), divisor)
		allocs[i].Amount = share
		distributed.Add(distributed, share)
	}
	allocs[remainderIdx].Amount = new(uint256.Int).Sub(payment, distributed)

	return allocs, nil
}

// Total sums the allocation amounts.
func Total(allocs []Allocation) *uint256.Int {
	sum := new(uint256.Int)
	for _, a := range allocs {
		sum.Add(sum, a.Amount)
	}
	return sum
}

// Distribute adds the token movements for allocs to the batch. Push shares
// move from payer to the recipient; pull shares move from payer to escrow
// and are returned so the caller can credit them once the batch is applied.
func Distribute(b *ledger.Batch, asset ledger.Asset, payer, escrow common.Address, allocs []Allocation) []Allocation {
	var credits []Allocation
	for _, a := range allocs {
		if a.Amount.IsZero() {
			continue
		}
		switch a.Delivery {
		case Pull:
			b.AddTransfer(asset, payer, escrow, a.Amount)
			credits = append(credits, a)
		default:
			b.AddTransfer(asset, payer, a.Account, a.Amount)
		}
	}
	return credits
}
