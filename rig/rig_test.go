package rig

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/mineport-monorepo-sub003/fees"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	treasury = common.HexToAddress("0x0000000000000000000000000000000000000002")
	team     = common.HexToAddress("0x0000000000000000000000000000000000000003")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000004")
	escrow   = common.HexToAddress("0x00000000000000000000000000000000000000e0")
)

type failingResolver struct{}

func (failingResolver) ProtocolFeeAddress(context.Context) (common.Address, error) {
	return common.Address{}, errors.New("unreachable")
}

// --- Deps tests ---

func TestDeps_Validate(t *testing.T) {
	var d Deps
	assert.ErrorIs(t, d.Validate(), ErrNilParam)

	d.Ledger = ledger.NewMemLedger()
	assert.ErrorIs(t, d.Validate(), ErrNilParam)

	d.Fees = protocol.NewStaticResolver(common.Address{})
	require.NoError(t, d.Validate())
	assert.NotNil(t, d.Clock)
	assert.NotNil(t, d.Log)
}

func TestDeps_Now(t *testing.T) {
	d := Deps{Clock: func() time.Time { return time.Unix(1_700_000_000, 0) }}
	assert.Equal(t, uint64(1_700_000_000), d.Now())

	d.Clock = func() time.Time { return time.Unix(-5, 0) }
	assert.Equal(t, uint64(0), d.Now())
}

func TestDeps_ProtocolRecipient(t *testing.T) {
	d := Deps{Fees: protocol.NewStaticResolver(stranger)}
	r, err := d.ProtocolRecipient(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, fees.Recipient{Account: stranger, Bps: 100, Delivery: fees.Push}, r)

	d.Fees = failingResolver{}
	_, err = d.ProtocolRecipient(context.Background(), 100)
	assert.Error(t, err)
}

func TestDeps_Withdraw(t *testing.T) {
	const quote ledger.Asset = "QUOTE"
	mem := ledger.NewMemLedger()
	mem.Credit(quote, escrow, uint256.NewInt(500))
	d := Deps{Ledger: mem}

	c := fees.NewClaims()
	c.Credit(stranger, uint256.NewInt(300))

	amt, err := d.Withdraw(context.Background(), c, quote, escrow, stranger)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), amt.Uint64())
	assert.Equal(t, uint64(300), mem.BalanceOf(quote, stranger).Uint64())

	_, err = d.Withdraw(context.Background(), c, quote, escrow, stranger)
	assert.ErrorIs(t, err, fees.ErrNothingToClaim)
	_, err = d.Withdraw(context.Background(), c, quote, escrow, common.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestDeps_WithdrawRestoresOnFailure(t *testing.T) {
	const quote ledger.Asset = "QUOTE"
	mem := ledger.NewMemLedger()
	mem.Credit(quote, escrow, uint256.NewInt(500))
	mem.Block(quote, stranger)
	d := Deps{Ledger: mem}

	c := fees.NewClaims()
	c.Credit(stranger, uint256.NewInt(300))

	_, err := d.Withdraw(context.Background(), c, quote, escrow, stranger)
	assert.ErrorIs(t, err, ledger.ErrBlocked)
	assert.Equal(t, uint64(300), c.Balance(stranger).Uint64())
}

// --- Roles tests ---

func TestRoles_Validate(t *testing.T) {
	assert.ErrorIs(t, Roles{Treasury: treasury}.Validate(), ErrZeroAddress)
	assert.ErrorIs(t, Roles{Owner: owner}.Validate(), ErrZeroAddress)
	assert.NoError(t, Roles{Owner: owner, Treasury: treasury}.Validate())
}

func TestRoles_Setters(t *testing.T) {
	r := Roles{Owner: owner, Treasury: treasury, Team: team}

	assert.ErrorIs(t, r.SetTreasury(stranger, stranger), ErrNotOwner)
	assert.ErrorIs(t, r.SetTreasury(owner, common.Address{}), ErrZeroAddress)
	require.NoError(t, r.SetTreasury(owner, stranger))
	assert.Equal(t, stranger, r.Treasury)

	require.NoError(t, r.SetTeam(owner, common.Address{}))
	assert.Equal(t, common.Address{}, r.Team)

	require.NoError(t, r.SetURI(owner, "ipfs://rig"))
	assert.Equal(t, "ipfs://rig", r.URI)
	assert.ErrorIs(t, r.SetURI(stranger, "x"), ErrNotOwner)

	assert.ErrorIs(t, r.TransferOwnership(owner, common.Address{}), ErrZeroAddress)
	require.NoError(t, r.TransferOwnership(owner, stranger))
	assert.ErrorIs(t, r.SetTeam(owner, team), ErrNotOwner)
}

// --- Encoding tests ---

func TestAmount(t *testing.T) {
	v := new(uint256.Int).Lsh(uint256.NewInt(7), 200)
	assert.True(t, EncodeAmount(v).Int().Eq(v))
	assert.True(t, EncodeAmount(nil).Int().IsZero())
}

func TestEncodeClaims(t *testing.T) {
	c := fees.NewClaims()
	c.Credit(stranger, uint256.NewInt(9))
	c.Credit(team, uint256.NewInt(1))
	_, err := c.Take(team)
	require.NoError(t, err)

	got := DecodeClaims(EncodeClaims(c), EncodeAmount(c.Routed()))
	assert.Equal(t, uint64(9), got.Balance(stranger).Uint64())
	assert.Equal(t, uint64(9), got.Outstanding().Uint64())
	assert.Equal(t, uint64(10), got.Routed().Uint64())
}

func TestRestorePending(t *testing.T) {
	g := randomness.NewGateway(nil, nil)
	RestorePending(g, map[randomness.RequestID]randomness.Tag{4: {Target: 1, Epoch: 2}})
	tag, ok := g.Pending(4)
	require.True(t, ok)
	assert.Equal(t, uint64(2), tag.Epoch)
}
