package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

const quote ledger.Asset = "USDC"

var (
	rigAcct      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	owner        = common.HexToAddress("0x0000000000000000000000000000000000000001")
	treasury     = common.HexToAddress("0x0000000000000000000000000000000000000002")
	team         = common.HexToAddress("0x0000000000000000000000000000000000000003")
	protocolAddr = common.HexToAddress("0x0000000000000000000000000000000000000004")
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b0")

	unlimited = new(uint256.Int).SetAllOne()
	t0        = time.Unix(1_700_000_000, 0)
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// mockPool fails on demand, records zero-weight calls and otherwise
// forwards to a MemRewardPool.
type mockPool struct {
	*MemRewardPool
	DepositFn func(ctx context.Context, account common.Address, weight *uint256.Int) error
	zeroCalls []string
}

func (m *mockPool) Deposit(ctx context.Context, account common.Address, weight *uint256.Int) error {
	if weight.IsZero() {
		m.zeroCalls = append(m.zeroCalls, "deposit "+account.Hex())
	}
	if m.DepositFn != nil {
		if err := m.DepositFn(ctx, account, weight); err != nil {
			return err
		}
	}
	return m.MemRewardPool.Deposit(ctx, account, weight)
}

func (m *mockPool) Withdraw(ctx context.Context, account common.Address, weight *uint256.Int) error {
	if weight.IsZero() {
		m.zeroCalls = append(m.zeroCalls, "withdraw "+account.Hex())
	}
	return m.MemRewardPool.Withdraw(ctx, account, weight)
}

type fixture struct {
	eng   *Engine
	mem   *ledger.MemLedger
	pool  *mockPool
	clock *fakeClock
}

func testConfig() Config {
	return Config{
		Account: rigAcct,
		Quote:   quote,
		Roles:   rig.Roles{Owner: owner, Treasury: treasury, Team: team},
		Auction: auction.Params{
			EpochPeriod:     3600,
			PriceMultiplier: uint256.NewInt(2_000_000_000_000_000_000),
			MinInitPrice:    uint256.NewInt(1_000_000),
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := ledger.NewMemLedger()
	for _, acct := range []common.Address{alice, bob} {
		mem.Credit(quote, acct, uint256.NewInt(100_000_000))
		mem.Approve(quote, acct, rigAcct, unlimited)
	}
	clock := &fakeClock{now: t0}
	pool := &mockPool{MemRewardPool: NewMemRewardPool()}

	eng, err := New(testConfig(), rig.Deps{
		Ledger: mem,
		Fees:   protocol.NewStaticResolver(protocolAddr),
		Clock:  clock.Now,
	}, pool)
	require.NoError(t, err)
	return &fixture{eng: eng, mem: mem, pool: pool, clock: clock}
}

func (f *fixture) create(t *testing.T) uint64 {
	t.Helper()
	id, err := f.eng.Create(context.Background(), CreateRequest{Creator: creator, URI: "ipfs://item"})
	require.NoError(t, err)
	return id
}

func (f *fixture) collect(t *testing.T, id uint64, collector common.Address) *uint256.Int {
	t.Helper()
	it, err := f.eng.Item(id)
	require.NoError(t, err)
	price, err := f.eng.Collect(context.Background(), CollectRequest{
		Caller:    collector,
		Collector: collector,
		ItemID:    id,
		EpochID:   it.EpochID,
		Deadline:  uint64(f.clock.now.Unix()),
		MaxPrice:  unlimited,
	})
	require.NoError(t, err)
	return price
}

// --- Create tests ---

func TestCreate(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(2), f.create(t))
	assert.Equal(t, uint64(2), f.eng.Count())

	it, err := f.eng.Item(id)
	require.NoError(t, err)
	assert.Equal(t, creator, it.Creator)
	assert.Equal(t, creator, it.Owner)
	assert.True(t, it.Stake.IsZero())
	assert.Equal(t, "ipfs://item", it.URI)

	price, err := f.eng.Price(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), price.Uint64())

	_, err = f.eng.Create(context.Background(), CreateRequest{})
	assert.ErrorIs(t, err, ErrZeroCreator)
}

// --- Collect tests ---

func TestCollect_SplitsAndStakes(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	price := f.collect(t, id, alice)
	assert.Equal(t, uint64(1_000_000), price.Uint64())

	// Previous owner and creator are the same account here: 80% + 3% pull.
	assert.Equal(t, uint64(830_000), f.eng.Claimable(creator).Uint64())
	assert.Equal(t, uint64(10_000), f.mem.BalanceOf(quote, team).Uint64())
	assert.Equal(t, uint64(10_000), f.mem.BalanceOf(quote, protocolAddr).Uint64())
	assert.Equal(t, uint64(150_000), f.mem.BalanceOf(quote, treasury).Uint64())
	assert.Equal(t, uint64(830_000), f.mem.BalanceOf(quote, rigAcct).Uint64())

	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(alice).Uint64())
	it, err := f.eng.Item(id)
	require.NoError(t, err)
	assert.Equal(t, alice, it.Owner)
	assert.Equal(t, uint64(1), it.EpochID)
	assert.Equal(t, uint64(2_000_000), it.InitPrice.Uint64())

	f.clock.now = f.clock.now.Add(30 * time.Minute)
	price = f.collect(t, id, bob)
	assert.Equal(t, uint64(1_000_000), price.Uint64())
	assert.Equal(t, uint64(800_000), f.eng.Claimable(alice).Uint64())
	assert.Equal(t, uint64(860_000), f.eng.Claimable(creator).Uint64())
	assert.True(t, f.pool.WeightOf(alice).IsZero())
	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(bob).Uint64())
	assert.Equal(t, uint64(1_000_000), f.pool.TotalWeight().Uint64())

	ownerOf, err := f.eng.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, bob, ownerOf)
}

func TestCollect_FreeCollectionRemovesStake(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)

	f.clock.now = f.clock.now.Add(2 * time.Hour)
	price := f.collect(t, id, bob)
	assert.True(t, price.IsZero())

	assert.True(t, f.pool.WeightOf(alice).IsZero())
	assert.True(t, f.pool.WeightOf(bob).IsZero())
	it, err := f.eng.Item(id)
	require.NoError(t, err)
	assert.Equal(t, bob, it.Owner)
	assert.True(t, it.Stake.IsZero())
	assert.Equal(t, uint64(1_000_000), it.InitPrice.Uint64())
}

func TestCollect_ZeroWeightsSkipPool(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice) // no previous stake

	f.clock.now = f.clock.now.Add(2 * time.Hour)
	require.True(t, f.collect(t, id, bob).IsZero())
	f.collect(t, id, alice) // bob staked nothing

	assert.Empty(t, f.pool.zeroCalls)
	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(alice).Uint64())
	assert.True(t, f.pool.WeightOf(bob).IsZero())
}

func TestCollect_RejectFreeCollectGuard(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)
	assert.ErrorIs(t, f.eng.SetRejectFreeCollect(alice, true), rig.ErrNotOwner)
	require.NoError(t, f.eng.SetRejectFreeCollect(owner, true))

	f.clock.now = f.clock.now.Add(2 * time.Hour)
	_, err := f.eng.Collect(context.Background(), CollectRequest{
		Caller: bob, Collector: bob, ItemID: id, EpochID: 1, Deadline: uint64(f.clock.now.Unix()), MaxPrice: unlimited,
	})
	assert.ErrorIs(t, err, ErrFreeCollect)
	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(alice).Uint64())

	ownerOf, err := f.eng.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, alice, ownerOf)
}

func TestCollect_Rejections(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	now := uint64(t0.Unix())
	tests := []struct {
		name    string
		req     CollectRequest
		wantErr error
	}{
		{"zero collector", CollectRequest{ItemID: id, Deadline: now, MaxPrice: unlimited}, ErrZeroCollector},
		{"unknown item", CollectRequest{Collector: alice, ItemID: 9, Deadline: now, MaxPrice: unlimited}, ErrUnknownItem},
		{"item zero", CollectRequest{Collector: alice, Deadline: now, MaxPrice: unlimited}, ErrUnknownItem},
		{"epoch mismatch", CollectRequest{Collector: alice, ItemID: id, EpochID: 1, Deadline: now, MaxPrice: unlimited}, auction.ErrEpochMismatch},
		{"deadline", CollectRequest{Collector: alice, ItemID: id, Deadline: now - 1, MaxPrice: unlimited}, auction.ErrDeadlinePassed},
		{"max price", CollectRequest{Collector: alice, ItemID: id, Deadline: now, MaxPrice: uint256.NewInt(5)}, auction.ErrMaxPriceExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Caller = alice
			_, err := f.eng.Collect(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	ownerOf, err := f.eng.OwnerOf(id)
	require.NoError(t, err)
	assert.Equal(t, creator, ownerOf)
}

func TestCollect_LedgerFailureRestoresPool(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)

	poor := common.HexToAddress("0x00000000000000000000000000000000000000d0")
	f.mem.Approve(quote, poor, rigAcct, unlimited)
	_, err := f.eng.Collect(context.Background(), CollectRequest{
		Caller: poor, Collector: poor, ItemID: id, EpochID: 1, Deadline: uint64(t0.Unix()), MaxPrice: unlimited,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(alice).Uint64())
	assert.True(t, f.pool.WeightOf(poor).IsZero())
	it, err := f.eng.Item(id)
	require.NoError(t, err)
	assert.Equal(t, alice, it.Owner)
	assert.Equal(t, uint64(1), it.EpochID)
}

func TestCollect_PoolFailureAborts(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)

	boom := errors.New("pool offline")
	f.pool.DepositFn = func(_ context.Context, account common.Address, _ *uint256.Int) error {
		if account == bob {
			return boom
		}
		return nil
	}
	_, err := f.eng.Collect(context.Background(), CollectRequest{
		Caller: bob, Collector: bob, ItemID: id, EpochID: 1, Deadline: uint64(t0.Unix()), MaxPrice: unlimited,
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1_000_000), f.pool.WeightOf(alice).Uint64())
	assert.Equal(t, uint64(100_000_000), f.mem.BalanceOf(quote, bob).Uint64())
}

// --- Claim tests ---

func TestClaim_Idempotent(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)

	amount, err := f.eng.Claim(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(830_000), amount.Uint64())
	assert.Equal(t, uint64(830_000), f.mem.BalanceOf(quote, creator).Uint64())
	assert.True(t, f.eng.Claimable(creator).IsZero())

	_, err = f.eng.Claim(context.Background(), creator)
	assert.ErrorIs(t, err, fees.ErrNothingToClaim)
}

// --- MemRewardPool tests ---

func TestMemRewardPool(t *testing.T) {
	p := NewMemRewardPool()
	ctx := context.Background()
	require.NoError(t, p.Deposit(ctx, alice, uint256.NewInt(10)))
	require.NoError(t, p.Deposit(ctx, alice, nil))
	require.NoError(t, p.Withdraw(ctx, alice, uint256.NewInt(4)))
	assert.Equal(t, uint64(6), p.WeightOf(alice).Uint64())

	assert.ErrorIs(t, p.Withdraw(ctx, alice, uint256.NewInt(7)), ErrInsufficientWeight)
	assert.ErrorIs(t, p.Withdraw(ctx, bob, uint256.NewInt(1)), ErrInsufficientWeight)
	require.NoError(t, p.Withdraw(ctx, bob, new(uint256.Int)))
	assert.Equal(t, uint64(6), p.TotalWeight().Uint64())
}

// --- Owner and snapshot tests ---

func TestOwnerSetters(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.eng.SetTreasury(owner, bob))
	require.NoError(t, f.eng.SetTeam(owner, common.Address{}))
	require.NoError(t, f.eng.SetURI(owner, "ipfs://content"))
	require.NoError(t, f.eng.TransferOwnership(owner, alice))
	assert.Equal(t, rig.Roles{Owner: alice, Treasury: bob, URI: "ipfs://content"}, f.eng.Roles())
}

func TestNew_RequiresPool(t *testing.T) {
	_, err := New(testConfig(), rig.Deps{Ledger: ledger.NewMemLedger(), Fees: protocol.NewStaticResolver(common.Address{})}, nil)
	assert.ErrorIs(t, err, rig.ErrNilParam)
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.collect(t, id, alice)
	require.NoError(t, f.eng.SetRejectFreeCollect(owner, true))

	restored, err := Restore(testConfig(), rig.Deps{
		Ledger: f.mem,
		Fees:   protocol.NewStaticResolver(protocolAddr),
		Clock:  f.clock.Now,
	}, f.pool, f.eng.Snapshot())
	require.NoError(t, err)

	want, err := f.eng.Item(id)
	require.NoError(t, err)
	got, err := restored.Item(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(830_000), restored.Claimable(creator).Uint64())

	// The guard survives the restore.
	f.clock.now = f.clock.now.Add(2 * time.Hour)
	_, err = restored.Collect(context.Background(), CollectRequest{
		Caller: bob, Collector: bob, ItemID: id, EpochID: 1, Deadline: uint64(f.clock.now.Unix()), MaxPrice: unlimited,
	})
	assert.ErrorIs(t, err, ErrFreeCollect)
}
