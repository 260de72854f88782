// Package seat implements the capacity-bounded mining rig: each slot is an
// independent Dutch auction whose holder earns emissions at the rate
// locked when they took the slot, optionally boosted by a random multiplier.
package seat

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
	PrevHolderBps uint64 = 8000
	TeamBps       uint64 = 400
	ProtocolBps   uint64 = 100
)

// MaxCapacity bounds the number of slots.
const MaxCapacity uint64 = 256

var (
	// DefaultMultiplier is the 1x multiplier every slot starts and resets to.
	DefaultMultiplier = uint256.NewInt(1_000_000_000_000_000_000)

	// MaxMultiplier is the largest multiplier a table may hold (10x).
	MaxMultiplier = uint256.NewInt(10_000_000_000_000_000_000)
)

// Config is the deployment configuration of a seat rig.
type Config struct {
	Account common.Address // The rig's own ledger account: escrow, minter, batch sender
	Unit    ledger.Asset   // Minted token
	Quote   ledger.Asset   // Payment token
	Roles   rig.Roles

	Auction       auction.Params
	InitialUps    *uint256.Int // Global emission rate before any halving
	TailUps       *uint256.Int // Floor rate
	HalvingAmount *uint256.Int // Supply at which the first halving occurs

	Capacity      uint64         // Initial slot count
	DefaultHolder common.Address // Holder of every slot at deploy; zero mints nothing

	MultiplierTable    []*uint256.Int // Candidate multipliers, each in [1x, 10x]
	MultiplierDuration uint64         // Seconds a drawn multiplier stays live
	RandomnessEnabled  bool
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
	if c.Capacity == 0 || c.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if len(c.MultiplierTable) == 0 {
		return fmt.Errorf("%w: empty multiplier table", ErrInvalidConfig)
	}
	for i, m := range c.MultiplierTable {
		if err := validateMultiplier(m); err != nil {
			return fmt.Errorf("table[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMultiplier(m *uint256.Int) error {
	if m == nil || m.Lt(DefaultMultiplier) || m.Gt(MaxMultiplier) {
		return ErrInvalidMultiplier
	}
	return nil
}

// Slot is one independently auctioned position.
type Slot struct {
	auction.State
	Ups                  *uint256.Int // Rate locked at the last settle
	Multiplier           *uint256.Int // 1e18 = 1x
	LastMultiplierUpdate uint64
	Holder               common.Address
	URI                  string
}

func (s Slot) clone() Slot {
	s.InitPrice = s.InitPrice.Clone()
	s.Ups = s.Ups.Clone()
	s.Multiplier = s.Multiplier.Clone()
	return s
}

// MineRequest takes slot Index for Miner. Caller pays the price; Value is
// the randomness fee, which must match exactly when a draw is due and be
// zero otherwise.
type MineRequest struct {
	Caller   common.Address
	Miner    common.Address
	Index    uint64
	EpochID  uint64
	Deadline uint64
	MaxPrice *uint256.Int
	URI      string
	Value    *uint256.Int
}

// MineResult describes a settle.
type MineResult struct {
	Price     *uint256.Int
	Minted    *uint256.Int // Paid to the outgoing holder
	Epoch     uint64       // New epoch of the slot
	RequestID randomness.RequestID
	Requested bool // Whether a multiplier draw was requested
}

// Engine is a seat rig. All methods are safe for concurrent use; actions
// are serialized.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	deps     rig.Deps
	roles    rig.Roles
	schedule *halving.Supply
	emission *emission.Ledger
	claims   *fees.Claims
	gateway  *randomness.Gateway
	log      logrus.FieldLogger

	slots      []Slot
	randomness bool
}

// Compile-time interface check.
var _ randomness.Callback = (*Engine)(nil)

// New deploys a seat rig.
func New(cfg Config, deps rig.Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if cfg.RandomnessEnabled && deps.Randomness == nil {
		return nil, ErrRandomnessUnavailable
	}
	schedule, err := halving.NewSupply(cfg.InitialUps, cfg.TailUps, cfg.HalvingAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	now := deps.Now()
	e := newEngine(cfg, deps, schedule)
	e.emission = emission.NewLedger(cfg.Unit, now)
	e.claims = fees.NewClaims()
	e.randomness = cfg.RandomnessEnabled

	ups := e.slotRate(cfg.Capacity)
	for i := uint64(0); i < cfg.Capacity; i++ {
		e.slots = append(e.slots, Slot{
			State:      auction.NewState(cfg.Auction.MinInitPrice, now),
			Ups:        ups.Clone(),
			Multiplier: DefaultMultiplier.Clone(),
			Holder:     cfg.DefaultHolder,
		})
	}
	e.log.WithFields(logrus.Fields{"rig": "seat", "capacity": cfg.Capacity}).Info("rig deployed")
	return e, nil
}

func newEngine(cfg Config, deps rig.Deps, schedule *halving.Supply) *Engine {
	cfg.MultiplierTable = cloneTable(cfg.MultiplierTable)
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		roles:    cfg.Roles,
		schedule: schedule,
		gateway:  randomness.NewGateway(deps.Randomness, deps.Log),
		log:      deps.Log.WithField("rig", "seat"),
	}
}

func cloneTable(t []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(t))
	for i, m := range t {
		out[i] = m.Clone()
	}
	return out
}

// slotRate is the global rate divided across capacity. Caller holds mu.
func (e *Engine) slotRate(capacity uint64) *uint256.Int {
	rate := e.schedule.RateAt(e.emission.TotalMinted())
	return rate.Div(rate, uint256.NewInt(capacity))
}

func since(now, t uint64) uint64 {
	if now <= t {
		return 0
	}
	return now - t
}

func (e *Engine) slot(index uint64) (*Slot, error) {
	if index >= uint64(len(e.slots)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(e.slots))
	}
	return &e.slots[index], nil
}

// Mine settles slot req.Index: the caller pays the current price, the
// outgoing holder is paid its emissions and the miner takes the slot.
func (e *Engine) Mine(ctx context.Context, req MineRequest) (*MineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Miner == (common.Address{}) {
		return nil, ErrZeroMiner
	}
	s, err := e.slot(req.Index)
	if err != nil {
		return nil, err
	}
	now := e.deps.Now()
	price, err := s.Check(e.cfg.Auction, auction.Intent{EpochID: req.EpochID, Deadline: req.Deadline, MaxPrice: req.MaxPrice}, now)
	if err != nil {
		return nil, err
	}

	expired := since(now, s.LastMultiplierUpdate) > e.cfg.MultiplierDuration
	draw := e.randomness && expired
	value := req.Value
	if value == nil {
		value = new(uint256.Int)
	}
	var fee *uint256.Int
	if draw {
		if fee, err = e.gateway.Fee(ctx); err != nil {
			return nil, fmt.Errorf("randomness fee: %w", err)
		}
	} else {
		fee = new(uint256.Int)
	}
	if !value.Eq(fee) {
		return nil, fmt.Errorf("%w: sent %s, want %s", randomness.ErrIncorrectFee, value.Dec(), fee.Dec())
	}

	protocolFee, err := e.deps.ProtocolRecipient(ctx, ProtocolBps)
	if err != nil {
		return nil, err
	}
	allocs, err := fees.Split(price, []fees.Recipient{
		{Account: s.Holder, Bps: PrevHolderBps, Delivery: fees.Pull},
		{Account: e.roles.Treasury, Remainder: true},
		{Account: e.roles.Team, Bps: TeamBps},
		protocolFee,
	})
	if err != nil {
		return nil, err
	}

	b := ledger.NewBatch(e.cfg.Account)
	credits := fees.Distribute(b, e.cfg.Quote, req.Caller, e.cfg.Account, allocs)
	owed := emission.Accrue(since(now, s.StartTime), s.Ups, s.Multiplier)
	minted := e.emission.Schedule(b, s.Holder, owed)

	next := s.clone()
	next.State = s.Advance(price, e.cfg.Auction, now)
	next.Holder = req.Miner
	next.URI = req.URI
	if expired {
		next.Multiplier = DefaultMultiplier.Clone()
	}
	total := e.emission.TotalMinted()
	total.Add(total, minted)
	rate := e.schedule.RateAt(total)
	next.Ups = rate.Div(rate, uint256.NewInt(uint64(len(e.slots))))

	res := &MineResult{Price: price, Minted: minted, Epoch: next.EpochID}
	if draw {
		if err := e.gateway.Charge(b, req.Caller, fee); err != nil {
			return nil, fmt.Errorf("randomness fee: %w", err)
		}
		if res.RequestID, err = e.gateway.Request(ctx, e, fee); err != nil {
			return nil, fmt.Errorf("randomness request: %w", err)
		}
		res.Requested = true
	}

	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		return nil, fmt.Errorf("settle slot %d: %w", req.Index, err)
	}

	e.claims.CreditAll(credits)
	e.emission.Commit(minted)
	*s = next
	if res.Requested {
		e.gateway.Track(res.RequestID, randomness.Tag{Target: req.Index, Epoch: next.EpochID, Account: req.Miner})
	}

	e.log.WithFields(logrus.Fields{
		"index":  req.Index,
		"epoch":  next.EpochID,
		"price":  price.Dec(),
		"minted": minted.Dec(),
	}).Info("slot settled")
	return res, nil
}

// Claim pays account's claimable balance to account. Anyone may trigger it.
func (e *Engine) Claim(ctx context.Context, account common.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	amount, err := e.deps.Withdraw(ctx, e.claims, e.cfg.Quote, e.cfg.Account, account)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"account": account.Hex(), "amount": amount.Dec()}).Debug("claimed")
	return amount, nil
}

// SetCapacity grows the rig to capacity slots. Existing slots keep their
// locked rate; new slots start empty at the rate for the new capacity.
func (e *Engine) SetCapacity(caller common.Address, capacity uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Authorize(caller); err != nil {
		return err
	}
	current := uint64(len(e.slots))
	if capacity <= current {
		return fmt.Errorf("%w: %d <= %d", ErrCapacityNotIncreased, capacity, current)
	}
	if capacity > MaxCapacity {
		return fmt.Errorf("%w: %d", ErrCapacityTooLarge, capacity)
	}

	now := e.deps.Now()
	ups := e.slotRate(capacity)
	for i := current; i < capacity; i++ {
		e.slots = append(e.slots, Slot{
			State:      auction.NewState(e.cfg.Auction.MinInitPrice, now),
			Ups:        ups.Clone(),
			Multiplier: DefaultMultiplier.Clone(),
		})
	}
	e.log.WithField("capacity", capacity).Info("capacity increased")
	return nil
}

// SetRandomness enables or disables multiplier draws.
func (e *Engine) SetRandomness(caller common.Address, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Authorize(caller); err != nil {
		return err
	}
	if enabled && !e.gateway.Enabled() {
		return ErrRandomnessUnavailable
	}
	e.randomness = enabled
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

// Price returns the current price of slot index.
func (e *Engine) Price(index uint64) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slot(index)
	if err != nil {
		return nil, err
	}
	return s.Price(e.cfg.Auction, e.deps.Now()), nil
}

// Rate returns the global emission rate at the current supply.
func (e *Engine) Rate() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schedule.RateAt(e.emission.TotalMinted())
}

// Slot returns a copy of slot index.
func (e *Engine) Slot(index uint64) (Slot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slot(index)
	if err != nil {
		return Slot{}, err
	}
	return s.clone(), nil
}

// PendingMint returns what the holder of slot index would be paid if the
// slot settled now.
func (e *Engine) PendingMint(index uint64) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.slot(index)
	if err != nil {
		return nil, err
	}
	if s.Holder == (common.Address{}) {
		return new(uint256.Int), nil
	}
	return emission.Accrue(since(e.deps.Now(), s.StartTime), s.Ups, s.Multiplier), nil
}

// Capacity returns the number of slots.
func (e *Engine) Capacity() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.slots))
}

// TotalMinted returns the cumulative emissions.
func (e *Engine) TotalMinted() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emission.TotalMinted()
}

// Claimable returns account's pull balance.
func (e *Engine) Claimable(account common.Address) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claims.Balance(account)
}

// OutstandingClaims returns the sum of all pull balances and the total
// ever routed to them.
func (e *Engine) OutstandingClaims() (outstanding, routed *uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claims.Outstanding(), e.claims.Routed()
}

// Roles returns the current role set.
func (e *Engine) Roles() rig.Roles {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles
}

// RandomnessEnabled reports whether multiplier draws are on.
func (e *Engine) RandomnessEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.randomness
}

// PendingRequests returns the number of outstanding multiplier draws.
func (e *Engine) PendingRequests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateway.PendingCount()
}
