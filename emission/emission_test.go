package emission

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
)

func TestAccrue(t *testing.T) {
	one := auction.Precision
	two := new(uint256.Int).Mul(auction.Precision, uint256.NewInt(2))

	tests := []struct {
		name       string
		elapsed    uint64
		rate       *uint256.Int
		multiplier *uint256.Int
		want       uint64
	}{
		{"1x", 100, uint256.NewInt(7), one, 700},
		{"2x", 100, uint256.NewInt(7), two, 1400},
		{"zero elapsed", 0, uint256.NewInt(7), one, 0},
		{"nil rate", 100, nil, one, 0},
		{"fractional multiplier floors", 3, uint256.NewInt(1), uint256.NewInt(500_000_000_000_000_000), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accrue(tt.elapsed, tt.rate, tt.multiplier).Uint64())
		})
	}
}

func TestAccrue_SaturatesOnOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := Accrue(^uint64(0), max, auction.Precision)
	assert.True(t, got.Eq(max))
}

func TestLedger_ScheduleAndCommit(t *testing.T) {
	const unit ledger.Asset = "UNIT"
	engine := common.HexToAddress("0xEE")
	holder := common.HexToAddress("0x01")

	mem := ledger.NewMemLedger()
	require.NoError(t, mem.SetMinter(unit, engine))

	l := NewLedger(unit, 1000)
	b := ledger.NewBatch(engine)

	scheduled := l.Schedule(b, holder, uint256.NewInt(250))
	assert.Equal(t, uint64(250), scheduled.Uint64())
	// Not recorded until committed.
	assert.True(t, l.TotalMinted().IsZero())

	require.NoError(t, mem.Apply(context.Background(), b))
	l.Commit(scheduled)
	assert.Equal(t, uint64(250), l.TotalMinted().Uint64())
	assert.Equal(t, uint64(250), mem.BalanceOf(unit, holder).Uint64())
}

func TestLedger_ScheduleSkipsSentinel(t *testing.T) {
	l := NewLedger("UNIT", 0)
	b := ledger.NewBatch(common.HexToAddress("0xEE"))

	assert.True(t, l.Schedule(b, common.Address{}, uint256.NewInt(10)).IsZero())
	assert.True(t, l.Schedule(b, common.HexToAddress("0x01"), new(uint256.Int)).IsZero())
	assert.Equal(t, 0, b.Len())
}

func TestLedger_Elapsed(t *testing.T) {
	l := Restore("UNIT", 500, uint256.NewInt(9))
	assert.Equal(t, uint64(0), l.Elapsed(400))
	assert.Equal(t, uint64(100), l.Elapsed(600))
	assert.Equal(t, uint64(9), l.TotalMinted().Uint64())
	assert.Equal(t, uint64(500), l.StartTime())
	assert.Equal(t, ledger.Asset("UNIT"), l.Asset())
}
