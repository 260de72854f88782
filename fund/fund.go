// Package fund implements the daily pool rig. Contributions are split
// among the configured recipients and bucketed by day; once a day closes,
// each contributor may mint its proportional share of that day's emission.
package fund

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/emission"
	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/halving"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// DaySeconds is the length of one bucket.
const DaySeconds uint64 = 86_400

// Fee shares in basis points. The treasury takes the remainder.
const (
	RecipientBps uint64 = 5000
	TeamBps      uint64 = 400
	ProtocolBps  uint64 = 100
)

// Config is the deployment configuration of a fund rig.
type Config struct {
	Account   common.Address // The rig's own ledger account: minter and batch sender
	Unit      ledger.Asset
	Quote     ledger.Asset
	Roles     rig.Roles
	Recipient common.Address // Beneficiary of half of every contribution

	MinContribution  *uint256.Int
	InitialEmission  *uint256.Int // Emission of day 0
	TailEmission     *uint256.Int // Floor per day
	HalvingPeriodDay uint64       // Days between halvings
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Account == (common.Address{}) {
		return fmt.Errorf("%w: account", rig.ErrZeroAddress)
	}
	if c.Recipient == (common.Address{}) {
		return fmt.Errorf("%w: recipient", rig.ErrZeroAddress)
	}
	if c.Unit == "" || c.Quote == "" {
		return fmt.Errorf("%w: asset names", ErrInvalidConfig)
	}
	if c.MinContribution == nil || c.MinContribution.IsZero() {
		return fmt.Errorf("%w: minimum contribution", ErrInvalidConfig)
	}
	return c.Roles.Validate()
}

// Day is one daily bucket.
type Day struct {
	Total         *uint256.Int
	Contributions map[common.Address]*uint256.Int
	Claimed       map[common.Address]bool
}

func newDay() *Day {
	return &Day{
		Total:         new(uint256.Int),
		Contributions: make(map[common.Address]*uint256.Int),
		Claimed:       make(map[common.Address]bool),
	}
}

// FundRequest contributes Amount on behalf of Account, paid by Caller.
type FundRequest struct {
	Caller  common.Address
	Account common.Address
	Amount  *uint256.Int
}

// Engine is a fund rig. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	cfg       Config
	deps      rig.Deps
	roles     rig.Roles
	recipient common.Address
	schedule  *halving.Time
	emission  *emission.Ledger
	log       logrus.FieldLogger

	days map[uint64]*Day
}

// New deploys a fund rig. Day 0 starts now.
func New(cfg Config, deps rig.Deps) (*Engine, error) {
	e, err := build(cfg, deps)
	if err != nil {
		return nil, err
	}
	e.emission = emission.NewLedger(cfg.Unit, deps.Now())
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
	schedule, err := halving.NewTime(cfg.InitialEmission, cfg.TailEmission, cfg.HalvingPeriodDay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		roles:     cfg.Roles,
		recipient: cfg.Recipient,
		schedule:  schedule,
		log:       deps.Log.WithField("rig", "fund"),
		days:      make(map[uint64]*Day),
	}, nil
}

func (e *Engine) currentDay() uint64 {
	return e.emission.Elapsed(e.deps.Now()) / DaySeconds
}

// Fund splits req.Amount among the recipients and records it in today's
// bucket under req.Account.
func (e *Engine) Fund(ctx context.Context, req FundRequest) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Account == (common.Address{}) {
		return 0, fmt.Errorf("%w: account", rig.ErrZeroAddress)
	}
	if req.Amount == nil || req.Amount.Lt(e.cfg.MinContribution) {
		return 0, fmt.Errorf("%w: minimum %s", ErrBelowMinimum, e.cfg.MinContribution.Dec())
	}

	protocolFee, err := e.deps.ProtocolRecipient(ctx, ProtocolBps)
	if err != nil {
		return 0, err
	}
	allocs, err := fees.Split(req.Amount, []fees.Recipient{
		{Account: e.recipient, Bps: RecipientBps},
		{Account: e.roles.Treasury, Remainder: true},
		{Account: e.roles.Team, Bps: TeamBps},
		protocolFee,
	})
	if err != nil {
		return 0, err
	}
	b := ledger.NewBatch(e.cfg.Account)
	fees.Distribute(b, e.cfg.Quote, req.Caller, e.cfg.Account, allocs)
	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		return 0, fmt.Errorf("fund: %w", err)
	}

	day := e.currentDay()
	d, ok := e.days[day]
	if !ok {
		d = newDay()
		e.days[day] = d
	}
	d.Total.Add(d.Total, req.Amount)
	c, ok := d.Contributions[req.Account]
	if !ok {
		c = new(uint256.Int)
		d.Contributions[req.Account] = c
	}
	c.Add(c, req.Amount)

	e.log.WithFields(logrus.Fields{
		"day":     day,
		"account": req.Account.Hex(),
		"amount":  req.Amount.Dec(),
	}).Debug("contribution recorded")
	return day, nil
}

// share checks that account may claim day and returns its reward.
// Caller holds mu.
func (e *Engine) share(account common.Address, day, current uint64) (*uint256.Int, error) {
	if day >= current {
		return nil, fmt.Errorf("%w: day %d, current %d", ErrDayNotClosed, day, current)
	}
	d, ok := e.days[day]
	if !ok {
		return nil, fmt.Errorf("%w: day %d", ErrNoContribution, day)
	}
	if d.Claimed[account] {
		return nil, fmt.Errorf("%w: day %d", ErrAlreadyClaimed, day)
	}
	c, ok := d.Contributions[account]
	if !ok || c.IsZero() {
		return nil, fmt.Errorf("%w: day %d", ErrNoContribution, day)
	}
	reward, _ := new(uint256.Int).MulDivOverflow(c, e.schedule.RateAt(day), d.Total)
	return reward, nil
}

// Claim mints account's share of a closed day.
func (e *Engine) Claim(ctx context.Context, account common.Address, day uint64) (*uint256.Int, error) {
	return e.ClaimDays(ctx, account, []uint64{day})
}

// ClaimDays mints account's share of several closed days in one action.
// Any ineligible day fails the whole call.
func (e *Engine) ClaimDays(ctx context.Context, account common.Address, days []uint64) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if account == (common.Address{}) {
		return nil, fmt.Errorf("%w: account", rig.ErrZeroAddress)
	}
	if len(days) == 0 {
		return nil, ErrNoDays
	}

	current := e.currentDay()
	seen := make(map[uint64]bool, len(days))
	total := new(uint256.Int)
	for _, day := range days {
		if seen[day] {
			return nil, fmt.Errorf("%w: day %d listed twice", ErrAlreadyClaimed, day)
		}
		seen[day] = true
		reward, err := e.share(account, day, current)
		if err != nil {
			return nil, err
		}
		total.Add(total, reward)
	}

	b := ledger.NewBatch(e.cfg.Account)
	minted := e.emission.Schedule(b, account, total)
	if err := e.deps.Ledger.Apply(ctx, b); err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	e.emission.Commit(minted)
	for _, day := range days {
		e.days[day].Claimed[account] = true
	}
	e.log.WithFields(logrus.Fields{
		"account": account.Hex(),
		"days":    len(days),
		"minted":  minted.Dec(),
	}).Info("rewards claimed")
	return minted, nil
}

// PendingReward returns what account could claim for day now, or zero.
func (e *Engine) PendingReward(account common.Address, day uint64) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	reward, err := e.share(account, day, e.currentDay())
	if err != nil {
		return new(uint256.Int)
	}
	return reward
}

// ClaimableDays returns the closed days account can still claim, ascending.
func (e *Engine) ClaimableDays(account common.Address) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.currentDay()
	var out []uint64
	for day := range e.days {
		if _, err := e.share(account, day, current); err == nil {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CurrentDay returns today's bucket index.
func (e *Engine) CurrentDay() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentDay()
}

// DayEmission returns the emission of day. It depends only on the day.
func (e *Engine) DayEmission(day uint64) *uint256.Int {
	return e.schedule.RateAt(day)
}

// DayTotal returns the total contributed on day.
func (e *Engine) DayTotal(day uint64) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.days[day]; ok {
		return d.Total.Clone()
	}
	return new(uint256.Int)
}

// Contribution returns account's contribution on day.
func (e *Engine) Contribution(account common.Address, day uint64) *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.days[day]; ok {
		if c, ok := d.Contributions[account]; ok {
			return c.Clone()
		}
	}
	return new(uint256.Int)
}

// HasClaimed reports whether account claimed day.
func (e *Engine) HasClaimed(account common.Address, day uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.days[day]
	return ok && d.Claimed[account]
}

// TotalMinted returns the cumulative rewards minted.
func (e *Engine) TotalMinted() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emission.TotalMinted()
}

// SetRecipient replaces the contribution beneficiary.
func (e *Engine) SetRecipient(caller, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.Authorize(caller); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return fmt.Errorf("%w: recipient", rig.ErrZeroAddress)
	}
	e.recipient = recipient
	return nil
}

// Recipient returns the contribution beneficiary.
func (e *Engine) Recipient() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recipient
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

// Roles returns the current role set.
func (e *Engine) Roles() rig.Roles {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roles
}
