package spin

import (
	"context"
	"testing"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

const (
	unit  ledger.Asset = "SPIN"
	quote ledger.Asset = "USDC"
)

var (
	rigAcct      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	owner        = common.HexToAddress("0x0000000000000000000000000000000000000001")
	treasury     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	team         = common.HexToAddress("0x0000000000000000000000000000000000000003")
	protocolAddr = common.HexToAddress("0x0000000000000000000000000000000000000004")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	vrfAcct      = common.HexToAddress("0x00000000000000000000000000000000000000f0")

	unlimited = new(uint256.Int).SetAllOne()
	t0        = time.Unix(1_700_000_000, 0)
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type scriptedProvider struct {
	fee  uint64
	next randomness.RequestID
	cb   randomness.Callback
}

func (p *scriptedProvider) mock() *randomness.MockProvider {
	return &randomness.MockProvider{
		Account: vrfAcct,
		FeeFn: func(context.Context) (*uint256.Int, error) { return uint256.NewInt(p.fee), nil },
		RequestFn: func(_ context.Context, cb randomness.Callback, _ *uint256.Int) (randomness.RequestID, error) {
			p.next++
			p.cb = cb
			return p.next, nil
		},
	}
}

type fixture struct {
	eng      *Engine
	mem      *ledger.MemLedger
	clock    *fakeClock
	provider *scriptedProvider
	hook     *test.Hook
}

func testConfig() Config {
	return Config{
		Account: rigAcct,
		Unit:    unit,
		Quote:   quote,
		Roles:   rig.Roles{Owner: owner, Treasury: treasury, Team: team},
		Auction: auction.Params{
			EpochPeriod:     3600,
			PriceMultiplier: uint256.NewInt(2_000_000_000_000_000_000),
			MinInitPrice:    uint256.NewInt(1_000_000),
		},
		InitialUps:    uint256.NewInt(10),
		TailUps:       uint256.NewInt(1),
		HalvingPeriod: 86400,
		Odds:          []uint64{100, 5000, 8000},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledger.NewMemLedger()
	require.NoError(t, mem.SetMinter(unit, rigAcct))
	for _, acct := range []common.Address{alice, bob} {
		mem.Credit(quote, acct, uint256.NewInt(1_000_000_000))
		mem.Approve(quote, acct, rigAcct, unlimited)
		mem.Credit(ledger.Native, acct, uint256.NewInt(1_000))
		mem.Approve(ledger.Native, acct, rigAcct, unlimited)
	}
	clock := &fakeClock{now: t0}
	logger, hook := test.NewNullLogger()
	p := &scriptedProvider{fee: 5}

	eng, err := New(testConfig(), rig.Deps{
		Ledger:     mem,
		Fees:       protocol.NewStaticResolver(protocolAddr),
		Randomness: p.mock(),
		Clock:      clock.Now,
		Log:        logger,
	})
	require.NoError(t, err)
	return &fixture{eng: eng, mem: mem, clock: clock, provider: p, hook: hook}
}

func (f *fixture) spin(t *testing.T, spinner common.Address) *SpinResult {
	t.Helper()
	res, err := f.eng.Spin(context.Background(), SpinRequest{
		Caller:   spinner,
		Spinner:  spinner,
		EpochID:  f.eng.Epoch(),
		Deadline: uint64(f.clock.Now().Unix()),
		MaxPrice: unlimited,
		Value:    uint256.NewInt(f.provider.fee),
	})
	require.NoError(t, err)
	return res
}

// --- Spin tests ---

func TestSpin_SettlesAndFillsPool(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(1800 * time.Second)
	assert.Equal(t, uint64(18_000), f.eng.PendingEmissions().Uint64())

	res := f.spin(t, alice)
	assert.Equal(t, uint64(500_000), res.Price.Uint64())
	assert.Equal(t, uint64(1), res.Epoch)
	assert.Equal(t, randomness.RequestID(1), res.RequestID)

	// No displaced party: treasury, team and protocol share the payment.
	assert.Equal(t, uint64(475_000), f.mem.BalanceOf(quote, treasury).Uint64())
	assert.Equal(t, uint64(20_000), f.mem.BalanceOf(quote, team).Uint64())
	assert.Equal(t, uint64(5_000), f.mem.BalanceOf(quote, protocolAddr).Uint64())
	assert.True(t, f.mem.BalanceOf(quote, rigAcct).IsZero())
	assert.Equal(t, uint64(5), f.mem.BalanceOf(ledger.Native, vrfAcct).Uint64())

	assert.True(t, f.eng.PendingEmissions().IsZero())
	assert.Equal(t, uint64(18_000), f.eng.PrizePool().Uint64())
	assert.True(t, f.eng.TotalMinted().IsZero(), "pool is not minted until paid out")
	assert.Equal(t, uint64(1_000_000), f.eng.Auction().InitPrice.Uint64())
}

func TestSpin_CallbackPaysShareOfPool(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(1800 * time.Second)
	res := f.spin(t, alice)

	f.clock.Advance(200 * time.Second)
	// value 4 selects odds[1] = 50% of 18_000 + 2_000.
	require.NoError(t, f.provider.cb.OnRandomness(context.Background(), res.RequestID, uint256.NewInt(4)))

	assert.Equal(t, uint64(10_000), f.mem.BalanceOf(unit, alice).Uint64())
	assert.Equal(t, uint64(10_000), f.eng.PrizePool().Uint64())
	assert.Equal(t, uint64(10_000), f.eng.TotalMinted().Uint64())
	assert.Equal(t, 0, f.eng.PendingRequests())

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "spin paid", entry.Message)
}

func TestSpin_StaleCallbackIsNoop(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Hour)
	first := f.spin(t, alice)
	f.clock.Advance(time.Minute)
	second := f.spin(t, bob)
	require.Equal(t, uint64(2), second.Epoch)

	poolBefore := f.eng.PrizePool()
	require.NoError(t, f.provider.cb.OnRandomness(context.Background(), first.RequestID, uint256.NewInt(2)))

	assert.True(t, f.mem.BalanceOf(unit, alice).IsZero())
	assert.True(t, f.eng.PrizePool().Eq(poolBefore))
	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "randomness callback ignored", entry.Message)

	// The live draw pays bob 80%.
	require.NoError(t, f.provider.cb.OnRandomness(context.Background(), second.RequestID, uint256.NewInt(2)))
	want := new(uint256.Int).Div(new(uint256.Int).Mul(poolBefore, uint256.NewInt(8000)), uint256.NewInt(10_000))
	assert.True(t, f.mem.BalanceOf(unit, bob).Eq(want))
}

func TestSpin_RequiresExactFee(t *testing.T) {
	f := newFixture(t)
	for _, v := range []*uint256.Int{nil, uint256.NewInt(4), uint256.NewInt(6)} {
		_, err := f.eng.Spin(context.Background(), SpinRequest{
			Caller: alice, Spinner: alice, Deadline: uint64(t0.Unix()), MaxPrice: unlimited, Value: v,
		})
		assert.ErrorIs(t, err, randomness.ErrIncorrectFee)
	}
	assert.Equal(t, uint64(0), f.eng.Epoch())
	assert.Equal(t, randomness.RequestID(0), f.provider.next)
}

func TestSpin_FailedSettleDoesNotPayForDraw(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Hour)
	f.mem.Block(quote, alice)

	_, err := f.eng.Spin(context.Background(), SpinRequest{
		Caller: alice, Spinner: alice, Deadline: uint64(f.clock.Now().Unix()), MaxPrice: unlimited, Value: uint256.NewInt(5),
	})
	require.ErrorIs(t, err, ledger.ErrBlocked)

	assert.True(t, f.mem.BalanceOf(ledger.Native, vrfAcct).IsZero())
	assert.Equal(t, uint64(1_000), f.mem.BalanceOf(ledger.Native, alice).Uint64())
	assert.Equal(t, 0, f.eng.PendingRequests())
	assert.Equal(t, uint64(0), f.eng.Epoch())
	assert.True(t, f.eng.PrizePool().Eq(f.eng.PendingEmissions()), "nothing moved into the pool")

	// A late value for the unpaid request pays nobody.
	require.NoError(t, f.provider.cb.OnRandomness(context.Background(), f.provider.next, uint256.NewInt(2)))
	assert.True(t, f.mem.BalanceOf(unit, alice).IsZero())
	assert.True(t, f.eng.TotalMinted().IsZero())
}

func TestSpin_StaleIntent(t *testing.T) {
	f := newFixture(t)
	now := uint64(t0.Unix())
	tests := []struct {
		name    string
		req     SpinRequest
		wantErr error
	}{
		{"zero spinner", SpinRequest{Deadline: now, MaxPrice: unlimited}, ErrZeroSpinner},
		{"epoch mismatch", SpinRequest{Spinner: alice, EpochID: 3, Deadline: now, MaxPrice: unlimited}, auction.ErrEpochMismatch},
		{"deadline passed", SpinRequest{Spinner: alice, Deadline: now - 1, MaxPrice: unlimited}, auction.ErrDeadlinePassed},
		{"price above max", SpinRequest{Spinner: alice, Deadline: now, MaxPrice: uint256.NewInt(1)}, auction.ErrMaxPriceExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Caller = alice
			tt.req.Value = uint256.NewInt(5)
			_, err := f.eng.Spin(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, uint64(0), f.eng.Epoch())
		})
	}
}

func TestSpin_FailedPayoutStaysPending(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Hour)
	res := f.spin(t, alice)
	pool := f.eng.PrizePool()

	f.mem.Block(unit, alice)
	err := f.provider.cb.OnRandomness(context.Background(), res.RequestID, uint256.NewInt(0))
	assert.ErrorIs(t, err, ledger.ErrBlocked)
	assert.True(t, f.eng.PrizePool().Eq(pool))
	assert.Equal(t, 1, f.eng.PendingRequests())

	f.mem.Unblock(unit, alice)
	require.NoError(t, f.provider.cb.OnRandomness(context.Background(), res.RequestID, uint256.NewInt(0)))
	assert.Equal(t, 0, f.eng.PendingRequests())
	assert.False(t, f.mem.BalanceOf(unit, alice).IsZero())
}

func TestSpin_HalvingRate(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, uint64(10), f.eng.Rate().Uint64())

	f.clock.Advance(24 * time.Hour)
	assert.Equal(t, uint64(5), f.eng.Rate().Uint64())

	// The rate is sampled once for the whole pending interval.
	assert.Equal(t, uint64(86_400*5), f.eng.PendingEmissions().Uint64())

	f.clock.Advance(100 * 24 * time.Hour)
	assert.Equal(t, uint64(1), f.eng.Rate().Uint64())
}

// --- Owner tests ---

func TestSetOdds(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		caller  common.Address
		odds    []uint64
		wantErr error
	}{
		{"not owner", alice, []uint64{100}, rig.ErrNotOwner},
		{"empty", owner, nil, ErrInvalidOdds},
		{"below min", owner, []uint64{9}, ErrInvalidOdds},
		{"above max", owner, []uint64{100, 8001}, ErrInvalidOdds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.eng.SetOdds(tt.caller, tt.odds), tt.wantErr)
		})
	}

	require.NoError(t, f.eng.SetOdds(owner, []uint64{10, 8000}))
	assert.Equal(t, []uint64{10, 8000}, f.eng.Odds())
}

func TestOwnerSetters(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.eng.SetTreasury(owner, bob))
	require.NoError(t, f.eng.SetTeam(owner, common.Address{}))
	require.NoError(t, f.eng.SetURI(owner, "ipfs://spin"))
	require.NoError(t, f.eng.TransferOwnership(owner, alice))

	roles := f.eng.Roles()
	assert.Equal(t, bob, roles.Treasury)
	assert.Equal(t, alice, roles.Owner)
	assert.Equal(t, "ipfs://spin", roles.URI)
	assert.ErrorIs(t, f.eng.SetURI(owner, "x"), rig.ErrNotOwner)
}

// --- Construction tests ---

func TestNew_Errors(t *testing.T) {
	deps := rig.Deps{Ledger: ledger.NewMemLedger(), Fees: protocol.NewStaticResolver(common.Address{})}
	_, err := New(testConfig(), deps)
	assert.ErrorIs(t, err, rig.ErrNilParam)

	deps.Randomness = (&scriptedProvider{}).mock()
	cfg := testConfig()
	cfg.HalvingPeriod = 0
	_, err = New(cfg, deps)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.Odds = []uint64{1}
	_, err = New(cfg, deps)
	assert.ErrorIs(t, err, ErrInvalidOdds)
}

// --- Snapshot tests ---

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(time.Hour)
	res := f.spin(t, alice)
	require.NoError(t, f.eng.SetOdds(owner, []uint64{8000}))

	restored, err := Restore(testConfig(), rig.Deps{
		Ledger:     f.mem,
		Fees:       protocol.NewStaticResolver(protocolAddr),
		Randomness: f.provider.mock(),
		Clock:      f.clock.Now,
	}, f.eng.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, f.eng.Auction(), restored.Auction())
	assert.True(t, restored.PrizePool().Eq(f.eng.PrizePool()))
	assert.Equal(t, []uint64{8000}, restored.Odds())
	assert.Equal(t, 1, restored.PendingRequests())

	require.NoError(t, restored.OnRandomness(context.Background(), res.RequestID, uint256.NewInt(0)))
	assert.Equal(t, uint64(36_000*8000/10_000), f.mem.BalanceOf(unit, alice).Uint64())
}

func TestSpin_SignedProviderEndToEnd(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	provider, err := randomness.NewSignedProvider(key, nil, []byte("spin"))
	require.NoError(t, err)

	mem := ledger.NewMemLedger()
	require.NoError(t, mem.SetMinter(unit, rigAcct))
	mem.Credit(quote, alice, uint256.NewInt(10_000_000))
	mem.Approve(quote, alice, rigAcct, unlimited)
	clock := &fakeClock{now: t0}

	eng, err := New(testConfig(), rig.Deps{
		Ledger:     mem,
		Fees:       protocol.NewStaticResolver(protocolAddr),
		Randomness: provider,
		Clock:      clock.Now,
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = eng.Spin(context.Background(), SpinRequest{
		Caller: alice, Spinner: alice, Deadline: uint64(clock.Now().Unix()), MaxPrice: unlimited, Value: new(uint256.Int),
	})
	require.NoError(t, err)

	proofs, err := provider.FulfillAll(context.Background())
	require.NoError(t, err)
	require.Len(t, proofs, 1)

	idx, err := randomness.Select(proofs[0].Value, 3)
	require.NoError(t, err)
	want := uint64(36_000) * testConfig().Odds[idx] / 10_000
	assert.Equal(t, want, mem.BalanceOf(unit, alice).Uint64())
}
