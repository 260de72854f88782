// Package spin implements the probabilistic payout rig. Every spin buys a
// draw against a prize pool that fills lazily with emissions; the drawn
// odds entry decides what share of the pool the spinner receives.
package spin

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/emission"
	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/halving"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// Fee shares in basis points. The treasury takes the remainder.
const (
	TeamBps     uint64 = 400
	ProtocolBps uint64 = 100
)

// Bounds for a single odds entry, in basis points of the pool.
const (
	MinOddsBps uint64 = 10
	MaxOddsBps uint64 = 8000
)

// Config is the deployment configuration of a spin rig.
type Config struct {
	Account common.Address // The rig's own ledger account: minter and batch sender
	Unit    ledger.Asset
	Quote   ledger.Asset
	Roles   rig.Roles

	Auction       auction.Params
	InitialUps    *uint256.Int // Pool fill rate before any halving
	TailUps       *uint256.Int
	HalvingPeriod uint64 // Seconds

	Odds []uint64 // Payout shares in basis points
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Account == (common.Address{}) {
		return fmt.Errorf("%w: account", rig.ErrZeroAddress)
	}
	if c.Unit == "" || c.Quote == "" {
		return fmt.Errorf("%w: asset names", ErrInvalidConfig)
	}
	if err := c.Roles.Validate(); err != nil {
		return err
	}
	if err := c.Auction.Validate(); err != nil {
		return err
	}
	return validateOdds(c.Odds)
}

func validateOdds(odds []uint64) error {
	if len(odds) == 0 {
		return fmt.Errorf("%w: empty table", ErrInvalidOdds)
	}
	for i, bps := range odds {
		if bps < MinOddsBps || bps > MaxOddsBps {
			return fmt.Errorf("%w: odds[%d] = %d", ErrInvalidOdds, i, bps)
		}
	}
	return nil
}

// SpinRequest buys a draw for Spinner. Caller pays the price; Value must
// equal the randomness fee exactly.
type SpinRequest struct {
	Caller   common.Address
	Spinner  common.Address
	EpochID  uint64
	Deadline uint64
	MaxPrice *uint256.Int
	Value    *uint256.Int
}

// SpinResult describes a spin.
type SpinResult struct {
	Price     *uint256.Int
	Epoch     uint64
	RequestID randomness.RequestID
}

// Engine is a spin rig. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	deps     rig.Deps
	roles    rig.Roles
	schedule *halving.Time
	emission *emission.Ledger
	gateway  *randomness.Gateway
	log      logrus.FieldLogger

	state       auction.State
	pool        *uint256.Int // Accrued, not yet paid out
	lastAccrual uint64
}

// Compile-time interface check.
var _ randomness.Callback = (*Engine)(nil)

// New deploys a spin rig. A randomness provider is required.
func New(cfg Config, deps rig.Deps) (*Engine, error) {
	e, err := build(cfg, deps)
	if err != nil {
		return nil, err
	}
	now := deps.Now()
	e.emission = emission.NewLedger(cfg.Unit, now)
	e.state = auction.NewState(cfg.Auction.MinInitPrice, now)
	e.pool = new(uint256.Int)
	e.lastAccrual = now
	e.log.Info("rig deployed")
	return e, nil
}

func build(cfg Config, deps rig.Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Randomness == nil {
		return nil, fmt.Errorf("%w: randomness provider", rig.ErrNilParam)
	}
	schedule, err := halving.NewTime(cfg.InitialUps, cfg.TailUps, cfg.HalvingPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Odds = append([]uint64(nil), cfg.Odds...)
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		roles:    cfg.Roles,
		schedule: schedule,
		gateway:  randomness.NewGateway(deps.Randomness, deps.Log),
		log:      deps.Log.WithField("rig", "spin"),
	}, nil
}

// pending is the emission accrued since the last accrual, sampled at the
// current halving rate. Caller holds mu.
func (e *Engine) pending(now uint64) *uint256.Int {
	if now <= e.lastAccrual {
		return new(uint256.Int)
	}
	rate := e.schedule.RateAt(e.emission.Elapsed(now))
	return emission.Accrue(now-e.lastAccrual, rate, auction.Precision)
}

// Spin settles the shared auction and requests a draw tagged with the new
// epoch.
func (e *Engine) Spin(ctx context.Context, req SpinRequest) (*SpinResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Spinner == (common.Address{}) {
		return nil, ErrZeroSpinner
	}
	now := e.deps.Now()
	price, err := e.state.Check(e.cfg.Auction, auction.Intent{EpochID: req.EpochID, Deadline: req.Deadline, MaxPrice: req.MaxPrice}, now)
	if err != nil {
		return nil, err
	}
	fee, err := e.gateway.Fee(ctx)
	if err != nil {
		return nil, fmt.Errorf("randomness fee: %w", err)
	}
	if req.Value == nil || !req.Value.Eq(fee) {
		return nil, fmt.Errorf("%w: want %s", randomness.ErrIncorrectFee, fee.Dec())
	}

	protocolFee, err := e.deps.ProtocolRecipient(ctx, ProtocolBps)
	if err != nil {
		return nil, err
	}
	allocs, err := fees.Split(price, []fees.Recipient{
		{Account: e.roles.Treasury, Remainder: true},
		{Account: e.roles.Team, Bps: TeamBps},
		protocolFee,
	})
	if err != nil {
		return nil, err
	}
	b := ledger.NewBatch(e.cfg.Account)
	fees.Distribute(b, e.cfg.Quote, req.Caller, e.cfg.Account, allocs)

	pool := new(uint256.Int).Add(e.pool, e.pending(now))
	next := e.state.Advance(price, e.cfg.Auction, now)

	if err := e.gateway.Charge(b, req.Caller, fee); err != nil {
		return nil, fmt.Errorf("randomness fee: %w", err)
	}
	id, err := e.gateway.Request(ctx, e, fee)
	if err != nil {
		return nil, fmt.Errorf("randomness request: %w", err)
	}
	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		return nil, fmt.Errorf("settle spin: %w", err)
	}

	e.pool = pool
	e.lastAccrual = now
	e.state = next
	e.gateway.Track(id, randomness.Tag{Epoch: next.EpochID, Account: req.Spinner})

	e.log.WithFields(logrus.Fields{
		"epoch":   next.EpochID,
		"price":   price.Dec(),
		"spinner": req.Spinner.Hex(),
		"pool":    pool.Dec(),
	}).Info("spin settled")
	return &SpinResult{Price: price, Epoch: next.EpochID, RequestID: id}, nil
}

// OnRandomness implements randomness.Callback.
func (e *Engine) OnRandomness(ctx context.Context, id randomness.RequestID, value *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.gateway.Deliver(ctx, drawTarget{e}, id, value)
	return err
}

// drawTarget pays out draws with mu already held.
type drawTarget struct{ e *Engine }

func (t drawTarget) TagCurrent(tag randomness.Tag) bool {
	return tag.Epoch == t.e.state.EpochID
}

func (t drawTarget) ApplyRandomness(ctx context.Context, tag randomness.Tag, value *uint256.Int) error {
	e := t.e
	idx, err := randomness.Select(value, len(e.cfg.Odds))
	if err != nil {
		return fmt.Errorf("select odds: %w", err)
	}
	bps := e.cfg.Odds[idx]

	now := e.deps.Now()
	pool := new(uint256.Int).Add(e.pool, e.pending(now))
	win, _ := new(uint256.Int).MulDivOverflow(pool, uint256.NewInt(bps), uint256.NewInt(fees.Divisor))

	b := ledger.NewBatch(e.cfg.Account)
	paid := e.emission.Schedule(b, tag.Account, win)
	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		return fmt.Errorf("pay spin: %w", err)
	}

	e.emission.Commit(paid)
	e.pool = pool.Sub(pool, paid)
	e.lastAccrual = now

	e.log.WithFields(logrus.Fields{
		"epoch":   tag.Epoch,
		"spinner": tag.Account.Hex(),
		"odds":    bps,
		"won":     paid.Dec(),
	}).Info("spin paid")
	return nil
}

// SetOdds replaces the odds table.
func (e *Engine) SetOdds(caller common.Address, odds []uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Authorize(caller); err != nil {
		return err
	}
	if err := validateOdds(odds); err != nil {
		return err
	}
	e.cfg.Odds = append([]uint64(nil), odds...)
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

// Price returns the current spin price.
func (e *Engine) Price() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Price(e.cfg.Auction, e.deps.Now())
}

// Epoch returns the live epoch.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.EpochID
}

// Auction returns a copy of the auction state.
func (e *Engine) Auction() auction.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.InitPrice = s.InitPrice.Clone()
	return s
}

// Rate returns the current pool fill rate.
func (e *Engine) Rate() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schedule.RateAt(e.emission.Elapsed(e.deps.Now()))
}

// PendingEmissions returns emissions accrued since the last spin or payout.
func (e *Engine) PendingEmissions() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending(e.deps.Now())
}

// PrizePool returns the pool including pending emissions.
func (e *Engine) PrizePool() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(uint256.Int).Add(e.pool, e.pending(e.deps.Now()))
}

// Odds returns a copy of the odds table.
func (e *Engine) Odds() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.cfg.Odds...)
}

// TotalMinted returns the cumulative payouts.
func (e *Engine) TotalMinted() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emission.TotalMinted()
}

// Roles returns the current role set.
func (e *Engine) Roles() rig.Roles {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles
}

// PendingRequests returns the number of outstanding draws.
func (e *Engine) PendingRequests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateway.PendingCount()
}
