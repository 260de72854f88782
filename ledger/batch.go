// Package ledger models the fungible-token collaborator the rigs settle
// against: quote-token transfers and reward-token mints.
//
// Every rig action collects its token movements into one Batch and hands it
// to a Ledger, which applies the whole batch or none of it.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Asset names a token tracked by a ledger.
type Asset string

// Native is the chain's native coin. Randomness fees attached to an action
// move in this asset.
const Native Asset = "NATIVE"

// OpType identifies the kind of operation in a batch.
type OpType int

const (
	// OpTransfer moves Amount of Asset from From to To.
	OpTransfer OpType = iota
	// OpMint creates Amount of Asset for To.
	OpMint
)

// String returns a short name for the operation type.
func (t OpType) String() string {
	switch t {
	case OpTransfer:
		return "transfer"
	case OpMint:
		return "mint"
	default:
		return "unknown"
	}
}

// Op is one token movement.
type Op struct {
	Type   OpType
	Asset  Asset
	From   common.Address // Unused for mints
	To     common.Address
	Amount *uint256.Int
}

// Batch collects the operations of one action. Sender is the account
// executing the batch: transfers from any other account spend the sender's
// allowance, and mints require the sender to hold the mint right.
type Batch struct {
	Sender common.Address
	ops    []Op
}

// NewBatch creates an empty batch executed by sender.
func NewBatch(sender common.Address) *Batch {
	return &Batch{Sender: sender}
}

// AddTransfer appends a transfer. Zero amounts are skipped.
func (b *Batch) AddTransfer(asset Asset, from, to common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	b.ops = append(b.ops, Op{Type: OpTransfer, Asset: asset, From: from, To: to, Amount: amount.Clone()})
}

// AddMint appends a mint. Zero amounts are skipped.
func (b *Batch) AddMint(asset Asset, to common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	b.ops = append(b.ops, Op{Type: OpMint, Asset: asset, To: to, Amount: amount.Clone()})
}

// Ops returns a copy of the batch operations in order.
func (b *Batch) Ops() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Len returns the number of operations.
func (b *Batch) Len() int { return len(b.ops) }

// Ledger applies batches atomically.
type Ledger interface {
	// Apply executes every operation of the batch in order, or none of them.
	Apply(ctx context.Context, b *Batch) error
}
