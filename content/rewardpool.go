package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RewardPool receives stake weight changes. It is notified before the
// collection's token movements and compensated if they fail.
type RewardPool interface {
	Deposit(ctx context.Context, account common.Address, weight *uint256.Int) error
	Withdraw(ctx context.Context, account common.Address, weight *uint256.Int) error
}

// MemRewardPool tracks stake weights in memory.
type MemRewardPool struct {
	mu      sync.Mutex
	weights map[common.Address]*uint256.Int
	total   *uint256.Int
}

// Compile-time interface check.
var _ RewardPool = (*MemRewardPool)(nil)

// NewMemRewardPool creates an empty pool.
func NewMemRewardPool() *MemRewardPool {
	return &MemRewardPool{weights: make(map[common.Address]*uint256.Int), total: new(uint256.Int)}
}

// Deposit adds weight to account.
func (p *MemRewardPool) Deposit(_ context.Context, account common.Address, weight *uint256.Int) error {
	if weight == nil || weight.IsZero() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.weights[account]
	if !ok {
		w = new(uint256.Int)
		p.weights[account] = w
	}
	w.Add(w, weight)
	p.total.Add(p.total, weight)
	return nil
}

// Withdraw removes weight from account.
func (p *MemRewardPool) Withdraw(_ context.Context, account common.Address, weight *uint256.Int) error {
	if weight == nil || weight.IsZero() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.weights[account]
	if !ok || w.Lt(weight) {
		return fmt.Errorf("%w: %s", ErrInsufficientWeight, account.Hex())
	}
	w.Sub(w, weight)
	if w.IsZero() {
		delete(p.weights, account)
	}
	p.total.Sub(p.total, weight)
	return nil
}

// WeightOf returns account's weight.
func (p *MemRewardPool) WeightOf(account common.Address) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.weights[account]; ok {
		return w.Clone()
	}
	return new(uint256.Int)
}

// TotalWeight returns the sum of all weights.
func (p *MemRewardPool) TotalWeight() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total.Clone()
}
