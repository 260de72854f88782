// Package rig holds what every rig engine shares: collaborator wiring,
// the owner-restricted role set and the snapshot encoding of amounts.
package rig

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
)

// Deps are the external collaborators of an engine.
type Deps struct {
	Ledger     ledger.Ledger        // Token movements and mints
	Fees       protocol.FeeResolver // Protocol fee address, queried per split
	Randomness randomness.Provider  // Optional for seat, required for spin
	Clock      func() time.Time     // Defaults to time.Now
	Log        logrus.FieldLogger   // Defaults to the standard logger
}

// Validate checks the required collaborators and fills in defaults.
func (d *Deps) Validate() error {
	if d.Ledger == nil {
		return fmt.Errorf("%w: ledger", ErrNilParam)
	}
	if d.Fees == nil {
		return fmt.Errorf("%w: fee resolver", ErrNilParam)
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return nil
}

// Now returns the clock as unix seconds. Times before the epoch read as 0.
func (d *Deps) Now() uint64 {
	sec := d.Clock().Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}

// ProtocolRecipient resolves the current protocol fee address as a push
// recipient of bps. A zero address yields a share that the remainder absorbs.
func (d *Deps) ProtocolRecipient(ctx context.Context, bps uint64) (fees.Recipient, error) {
	addr, err := d.Fees.ProtocolFeeAddress(ctx)
	if err != nil {
		return fees.Recipient{}, fmt.Errorf("resolve protocol fee address: %w", err)
	}
	return fees.Recipient{Account: addr, Bps: bps, Delivery: fees.Push}, nil
}

// Roles is the owner-controlled configuration shared by all engines. It is
// not safe for concurrent use; the owning engine serializes access.
type Roles struct {
	Owner    common.Address
	Treasury common.Address // Remainder recipient, never zero
	Team     common.Address // Zero skips the team share
	URI      string
}

// Validate checks the roles at construction.
func (r Roles) Validate() error {
	if r.Owner == (common.Address{}) {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	if r.Treasury == (common.Address{}) {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	return nil
}

// Authorize fails unless caller is the owner.
func (r *Roles) Authorize(caller common.Address) error {
	if caller != r.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// SetTreasury replaces the treasury.
func (r *Roles) SetTreasury(caller, treasury common.Address) error {
	if err := r.Authorize(caller); err != nil {
		return err
	}
	if treasury == (common.Address{}) {
		return fmt.Errorf("%w: treasury", ErrZeroAddress)
	}
	r.Treasury = treasury
	return nil
}

// SetTeam replaces the team account. The zero address disables the share.
func (r *Roles) SetTeam(caller, team common.Address) error {
	if err := r.Authorize(caller); err != nil {
		return err
	}
	r.Team = team
	return nil
}

// SetURI replaces the instance metadata URI.
func (r *Roles) SetURI(caller common.Address, uri string) error {
	if err := r.Authorize(caller); err != nil {
		return err
	}
	r.URI = uri
	return nil
}

// TransferOwnership hands the owner role to next.
func (r *Roles) TransferOwnership(caller, next common.Address) error {
	if err := r.Authorize(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	r.Owner = next
	return nil
}

// Amount is the fixed-width snapshot encoding of a uint256 amount.
type Amount [32]byte

// EncodeAmount encodes v; nil encodes as zero.
func EncodeAmount(v *uint256.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount(v.Bytes32())
}

// Int decodes the amount.
func (a Amount) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(a[:])
}

// EncodeClaims flattens a claim book for a snapshot.
func EncodeClaims(c *fees.Claims) map[common.Address]Amount {
	out := make(map[common.Address]Amount)
	for acct, bal := range c.Entries() {
		out[acct] = EncodeAmount(bal)
	}
	return out
}

// DecodeClaims rebuilds a claim book from a snapshot.
func DecodeClaims(balances map[common.Address]Amount, routed Amount) *fees.Claims {
	m := make(map[common.Address]*uint256.Int, len(balances))
	for acct, bal := range balances {
		m[acct] = bal.Int()
	}
	return fees.RestoreClaims(m, routed.Int())
}

// RestorePending re-tracks outstanding randomness requests on g.
func RestorePending(g *randomness.Gateway, pending map[randomness.RequestID]randomness.Tag) {
	for id, tag := range pending {
		g.Track(id, tag)
	}
}

// Withdraw pays account's claimable balance out of escrow. The balance is
// zeroed first and restored if the transfer fails.
func (d *Deps) Withdraw(ctx context.Context, c *fees.Claims, asset ledger.Asset, escrow, account common.Address) (*uint256.Int, error) {
	if account == (common.Address{}) {
		return nil, fmt.Errorf("%w: account", ErrZeroAddress)
	}
	amount, err := c.Take(account)
	if err != nil {
		return nil, err
	}
	b := ledger.NewBatch(escrow)
	b.AddTransfer(asset, escrow, account, amount)
	if err := d.Ledger.Apply(ctx, b); err != nil {
		c.Restore(account, amount)
		return nil, fmt.Errorf("claim transfer: %w", err)
	}
	return amount, nil
}
