package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type balanceKey struct {
	asset   Asset
	account common.Address
}

type allowanceKey struct {
	asset   Asset
	owner   common.Address
	spender common.Address
}

// MemLedger is an in-memory Ledger. Each asset has at most one minter,
// granted once and never revoked, and an optional blocklist that makes
// transfers to or from a listed account fail.
type MemLedger struct {
	mu         sync.RWMutex
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	supply     map[Asset]*uint256.Int
	minters    map[Asset]common.Address
	blocked    map[balanceKey]bool
}

// Compile-time interface check.
var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances:   make(map[balanceKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		supply:     make(map[Asset]*uint256.Int),
		minters:    make(map[Asset]common.Address),
		blocked:    make(map[balanceKey]bool),
	}
}

// SetMinter grants the mint right for asset. It can be called once per asset.
func (l *MemLedger) SetMinter(asset Asset, minter common.Address) error {
	if minter == (common.Address{}) {
		return fmt.Errorf("%w: minter", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.minters[asset]; ok {
		return fmt.Errorf("%w: %s", ErrMinterAlreadySet, asset)
	}
	l.minters[asset] = minter
	return nil
}

// Minter returns the mint right holder for asset.
func (l *MemLedger) Minter(asset Asset) (common.Address, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.minters[asset]
	return m, ok
}

// Credit adds amount to an account outside of any batch (genesis funding).
func (l *MemLedger) Credit(asset Asset, to common.Address, amount *uint256.Int) {
	if amount == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{asset, to}
	l.balances[k] = new(uint256.Int).Add(l.balanceLocked(k), amount)
	s := l.supply[asset]
	if s == nil {
		s = new(uint256.Int)
	}
	l.supply[asset] = new(uint256.Int).Add(s, amount)
}

// Approve sets the amount spender may move out of owner's balance.
// The all-ones value is treated as unlimited.
func (l *MemLedger) Approve(asset Asset, owner, spender common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil {
		amount = new(uint256.Int)
	}
	l.allowances[allowanceKey{asset, owner, spender}] = amount.Clone()
}

// Allowance returns what spender may still move out of owner's balance.
func (l *MemLedger) Allowance(asset Asset, owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[allowanceKey{asset, owner, spender}]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// Block adds account to the asset's blocklist.
func (l *MemLedger) Block(asset Asset, account common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocked[balanceKey{asset, account}] = true
}

// Unblock removes account from the asset's blocklist.
func (l *MemLedger) Unblock(asset Asset, account common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.blocked, balanceKey{asset, account})
}

// BalanceOf returns the balance of account.
func (l *MemLedger) BalanceOf(asset Asset, account common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(balanceKey{asset, account}).Clone()
}

// TotalSupply returns the circulating amount of asset.
func (l *MemLedger) TotalSupply(asset Asset) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.supply[asset]; ok {
		return s.Clone()
	}
	return new(uint256.Int)
}

func (l *MemLedger) balanceLocked(k balanceKey) *uint256.Int {
	if b, ok := l.balances[k]; ok {
		return b
	}
	return new(uint256.Int)
}

// Apply executes the batch atomically. Operations are validated in order
// against a working copy; the ledger changes only if every one succeeds.
func (l *MemLedger) Apply(ctx context.Context, b *Batch) error {
	if b == nil {
		return fmt.Errorf("%w: batch", ErrNilParam)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[balanceKey]*uint256.Int)
	allowances := make(map[allowanceKey]*uint256.Int)
	supply := make(map[Asset]*uint256.Int)

	balance := func(k balanceKey) *uint256.Int {
		if v, ok := balances[k]; ok {
			return v
		}
		v := l.balanceLocked(k).Clone()
		balances[k] = v
		return v
	}

	for i, op := range b.ops {
		if op.To == (common.Address{}) {
			return fmt.Errorf("%w: op[%d] %s recipient", ErrZeroAddress, i, op.Type)
		}
		if l.blocked[balanceKey{op.Asset, op.To}] {
			return fmt.Errorf("%w: op[%d] %s recipient %s", ErrBlocked, i, op.Type, op.To.Hex())
		}

		switch op.Type {
		case OpMint:
			if m, ok := l.minters[op.Asset]; !ok || m != b.Sender {
				return fmt.Errorf("%w: op[%d] %s by %s", ErrUnauthorizedMinter, i, op.Asset, b.Sender.Hex())
			}
			s, ok := supply[op.Asset]
			if !ok {
				s = new(uint256.Int)
				if cur, exists := l.supply[op.Asset]; exists {
					s.Set(cur)
				}
				supply[op.Asset] = s
			}
			if _, overflow := s.AddOverflow(s, op.Amount); overflow {
				return fmt.Errorf("%w: op[%d] %s", ErrSupplyOverflow, i, op.Asset)
			}
			to := balance(balanceKey{op.Asset, op.To})
			to.Add(to, op.Amount)

		case OpTransfer:
			if l.blocked[balanceKey{op.Asset, op.From}] {
				return fmt.Errorf("%w: op[%d] sender %s", ErrBlocked, i, op.From.Hex())
			}
			if op.From != b.Sender {
				ak := allowanceKey{op.Asset, op.From, b.Sender}
				allowance, ok := allowances[ak]
				if !ok {
					allowance = new(uint256.Int)
					if cur, exists := l.allowances[ak]; exists {
						allowance.Set(cur)
					}
					allowances[ak] = allowance
				}
				if allowance.Lt(op.Amount) {
					return fmt.Errorf("%w: op[%d] %s from %s", ErrInsufficientAllowance, i, op.Asset, op.From.Hex())
				}
				if !isUnlimited(allowance) {
					allowance.Sub(allowance, op.Amount)
				}
			}
			from := balance(balanceKey{op.Asset, op.From})
			if from.Lt(op.Amount) {
				return fmt.Errorf("%w: op[%d] %s from %s has %s, needs %s",
					ErrInsufficientBalance, i, op.Asset, op.From.Hex(), from.Dec(), op.Amount.Dec())
			}
			from.Sub(from, op.Amount)
			to := balance(balanceKey{op.Asset, op.To})
			to.Add(to, op.Amount)

		default:
			return fmt.Errorf("%w: op[%d] type %d", ErrUnknownOp, i, op.Type)
		}
	}

	for k, v := range balances {
		l.balances[k] = v
	}
	for k, v := range allowances {
		l.allowances[k] = v
	}
	for k, v := range supply {
		l.supply[k] = v
	}
	return nil
}

func isUnlimited(v *uint256.Int) bool {
	return v.Eq(new(uint256.Int).SetAllOne())
}
