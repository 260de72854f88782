// Package content implements the collectible-content rig. Each item is a
// Dutch auction over its ownership; the price paid becomes the new owner's
// weight in a separate reward pool.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// Fee shares in basis points. The treasury takes the remainder.
const (
	PrevOwnerBps uint64 = 8000
	CreatorBps   uint64 = 300
	TeamBps      uint64 = 100
	ProtocolBps  uint64 = 100
)

// Config is the deployment configuration of a content rig.
type Config struct {
	Account common.Address // The rig's own ledger account: escrow and batch sender
	Quote   ledger.Asset
	Roles   rig.Roles
	Auction auction.Params

	// RejectFreeCollect refuses zero-price collections. Off by default, in
	// which case a free collection still removes the previous owner's stake.
	RejectFreeCollect bool
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Account == (common.Address{}) {
		return fmt.Errorf("%w: account", rig.ErrZeroAddress)
	}
	if c.Quote == "" {
		return fmt.Errorf("%w: asset name", ErrInvalidConfig)
	}
	if err := c.Roles.Validate(); err != nil {
		return err
	}
	return c.Auction.Validate()
}

// Item is one collectible.
type Item struct {
	auction.State
	ID      uint64
	Creator common.Address
	Owner   common.Address
	URI     string
	Stake   *uint256.Int // Last price paid, held as the owner's pool weight
}

func (it Item) clone() Item {
	it.InitPrice = it.InitPrice.Clone()
	it.Stake = it.Stake.Clone()
	return it
}

// CreateRequest creates an item owned by Creator.
type CreateRequest struct {
	Creator common.Address
	URI     string
}

// CollectRequest buys item ItemID for Collector, paid by Caller.
type CollectRequest struct {
	Caller    common.Address
	Collector common.Address
	ItemID    uint64
	EpochID   uint64
	Deadline  uint64
	MaxPrice  *uint256.Int
}

// Engine is a content rig. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	deps   rig.Deps
	roles  rig.Roles
	pool   RewardPool
	claims *fees.Claims
	log    logrus.FieldLogger

	items             []Item // Item ID n lives at index n-1
	rejectFreeCollect bool
}

// New deploys a content rig notifying pool of stake changes.
func New(cfg Config, deps rig.Deps, pool RewardPool) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: reward pool", rig.ErrNilParam)
	}
	return &Engine{
		cfg:               cfg,
		deps:              deps,
		roles:             cfg.Roles,
		pool:              pool,
		claims:            fees.NewClaims(),
		log:               deps.Log.WithField("rig", "content"),
		rejectFreeCollect: cfg.RejectFreeCollect,
	}, nil
}

func (e *Engine) item(id uint64) (*Item, error) {
	if id == 0 || id > uint64(len(e.items)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownItem, id)
	}
	return &e.items[id-1], nil
}

// Create adds an item owned by its creator and returns its ID. IDs start at 1.
func (e *Engine) Create(_ context.Context, req CreateRequest) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Creator == (common.Address{}) {
		return 0, ErrZeroCreator
	}
	id := uint64(len(e.items)) + 1
	e.items = append(e.items, Item{
		State:   auction.NewState(e.cfg.Auction.MinInitPrice, e.deps.Now()),
		ID:      id,
		Creator: req.Creator,
		Owner:   req.Creator,
		URI:     req.URI,
		Stake:   new(uint256.Int),
	})
	e.log.WithFields(logrus.Fields{"item": id, "creator": req.Creator.Hex()}).Info("item created")
	return id, nil
}

// Collect settles item req.ItemID: the caller pays the current price, the
// previous owner's stake leaves the reward pool and the price is staked
// for the collector.
func (e *Engine) Collect(ctx context.Context, req CollectRequest) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Collector == (common.Address{}) {
		return nil, ErrZeroCollector
	}
	it, err := e.item(req.ItemID)
	if err != nil {
		return nil, err
	}
	now := e.deps.Now()
	price, err := it.Check(e.cfg.Auction, auction.Intent{EpochID: req.EpochID, Deadline: req.Deadline, MaxPrice: req.MaxPrice}, now)
	if err != nil {
		return nil, err
	}
	if price.IsZero() && e.rejectFreeCollect {
		return nil, ErrFreeCollect
	}

	protocolFee, err := e.deps.ProtocolRecipient(ctx, ProtocolBps)
	if err != nil {
		return nil, err
	}
	allocs, err := fees.Split(price, []fees.Recipient{
		{Account: it.Owner, Bps: PrevOwnerBps, Delivery: fees.Pull},
		{Account: it.Creator, Bps: CreatorBps, Delivery: fees.Pull},
		{Account: e.roles.Treasury, Remainder: true},
		{Account: e.roles.Team, Bps: TeamBps},
		protocolFee,
	})
	if err != nil {
		return nil, err
	}
	b := ledger.NewBatch(e.cfg.Account)
	credits := fees.Distribute(b, e.cfg.Quote, req.Caller, e.cfg.Account, allocs)

	// Zero weights are never sent to the pool.
	prevOwner, prevStake := it.Owner, it.Stake
	staked, deposited := !prevStake.IsZero(), !price.IsZero()
	if staked {
		if err := e.pool.Withdraw(ctx, prevOwner, prevStake); err != nil {
			return nil, fmt.Errorf("withdraw stake: %w", err)
		}
	}
	restake := func() error {
		if !staked {
			return nil
		}
		return e.pool.Deposit(ctx, prevOwner, prevStake)
	}
	if deposited {
		if err := e.pool.Deposit(ctx, req.Collector, price); err != nil {
			return nil, errors.Join(fmt.Errorf("deposit stake: %w", err), restake())
		}
	}
	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		var unstake error
		if deposited {
			unstake = e.pool.Withdraw(ctx, req.Collector, price)
		}
		return nil, errors.Join(fmt.Errorf("collect item %d: %w", req.ItemID, err), unstake, restake())
	}

	e.claims.CreditAll(credits)
	it.State = it.Advance(price, e.cfg.Auction, now)
	it.Owner = req.Collector
	it.Stake = price.Clone()

	e.log.WithFields(logrus.Fields{
		"item":  req.ItemID,
		"epoch": it.EpochID,
		"price": price.Dec(),
	}).Info("item collected")
	return price, nil
}

// Claim pays account's claimable balance to account. Anyone may trigger it.
func (e *Engine) Claim(ctx context.Context, account common.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deps.Withdraw(ctx, e.claims, e.cfg.Quote, e.cfg.Account, account)
}

// SetRejectFreeCollect toggles the zero-price guard.
func (e *Engine) SetRejectFreeCollect(caller common.Address, reject bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Authorize(caller); err != nil {
		return err
	}
	e.rejectFreeCollect = reject
	return nil
}

// SetTreasury replaces the treasury.
func (e *Engine) SetTreasury(caller, treasury common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.SetTreasury(caller, treasury)
}

// SetTeam replaces the team account; zero disables the team share.
func (e *Engine) SetTeam(caller, team common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.SetTeam(caller, team)
}

// SetURI replaces the rig metadata URI.
func (e *Engine) SetURI(caller common.Address, uri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.SetURI(caller, uri)
}

// TransferOwnership hands the owner role to next.
func (e *Engine) TransferOwnership(caller, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles.TransferOwnership(caller, next)
}

// Price returns the current price of item id.
func (e *Engine) Price(id uint64) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, err := e.item(id)
	if err != nil {
		return nil, err
	}
	return it.Price(e.cfg.Auction, e.deps.Now()), nil
}

// Item returns a copy of item id.
func (e *Engine) Item(id uint64) (Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, err := e.item(id)
	if err != nil {
		return Item{}, err
	}
	return it.clone(), nil
}

// OwnerOf returns the owner of item id.
func (e *Engine) OwnerOf(id uint64) (common.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, err := e.item(id)
	if err != nil {
		return common.Address{}, err
	}
	return it.Owner, nil
}

// Count returns the number of items.
func (e *Engine) Count() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.items))
}

// Claimable returns account's pull balance.
func (e *Engine) Claimable(account common.Address) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claims.Balance(account)
}

// Roles returns the current role set.
func (e *Engine) Roles() rig.Roles {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles
}
