package fees

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Claims holds pull balances. It is not safe for concurrent use; the
// owning engine serializes access.
type Claims struct {
	balances    map[common.Address]*uint256.Int
	outstanding *uint256.Int // Sum of all balances
	routed      *uint256.Int // Cumulative amount ever credited
}

// NewClaims creates an empty claim book.
func NewClaims() *Claims {
	return &Claims{
		balances:    make(map[common.Address]*uint256.Int),
		outstanding: new(uint256.Int),
		routed:      new(uint256.Int),
	}
}

// Credit adds amount to account's claimable balance.
func (c *Claims) Credit(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	bal, ok := c.balances[account]
	if !ok {
		bal = new(uint256.Int)
		c.balances[account] = bal
	}
	bal.Add(bal, amount)
	c.outstanding.Add(c.outstanding, amount)
	c.routed.Add(c.routed, amount)
}

// CreditAll credits every allocation.
func (c *Claims) CreditAll(allocs []Allocation) {
	for _, a := range allocs {
		c.Credit(a.Account, a.Amount)
	}
}

// Balance returns account's claimable balance.
func (c *Claims) Balance(account common.Address) *uint256.Int {
	if bal, ok := c.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Take zeroes account's balance and returns what it held. The balance is
// cleared before the caller transfers it out.
func (c *Claims) Take(account common.Address) (*uint256.Int, error) {
	bal, ok := c.balances[account]
	if !ok || bal.IsZero() {
		return nil, ErrNothingToClaim
	}
	delete(c.balances, account)
	c.outstanding.Sub(c.outstanding, bal)
	return bal, nil
}

// Restore returns a taken amount after its transfer failed.
func (c *Claims) Restore(account common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	bal, ok := c.balances[account]
	if !ok {
		bal = new(uint256.Int)
		c.balances[account] = bal
	}
	bal.Add(bal, amount)
	c.outstanding.Add(c.outstanding, amount)
}

// Outstanding returns the sum of all claimable balances.
func (c *Claims) Outstanding() *uint256.Int { return c.outstanding.Clone() }

// Routed returns the cumulative amount ever credited.
func (c *Claims) Routed() *uint256.Int { return c.routed.Clone() }

// Entries returns a copy of all non-zero balances.
func (c *Claims) Entries() map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(c.balances))
	for k, v := range c.balances {
		out[k] = v.Clone()
	}
	return out
}

// RestoreClaims rebuilds a claim book from persisted balances and the
// cumulative routed total.
func RestoreClaims(balances map[common.Address]*uint256.Int, routed *uint256.Int) *Claims {
	c := NewClaims()
	for k, v := range balances {
		if v == nil || v.IsZero() {
			continue
		}
		c.balances[k] = v.Clone()
		c.outstanding.Add(c.outstanding, v)
	}
	if routed != nil {
		c.routed = routed.Clone()
	}
	return c
}
