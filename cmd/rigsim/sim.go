package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"

	"github.com/Heesho/mineport-monorepo-sub003/config"
	"github.com/Heesho/mineport-monorepo-sub003/ledger"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
	"github.com/Heesho/mineport-monorepo-sub003/seat"
	"github.com/Heesho/mineport-monorepo-sub003/state"
)

const (
	unitAsset  ledger.Asset = "RIG"
	quoteAsset ledger.Asset = "USDC"
)

// Fixed accounts of the simulated deployment.
var (
	rigAccount = common.HexToAddress("0x0000000000000000000000000000000000001000")
	ownerAcct  = common.HexToAddress("0x0000000000000000000000000000000000001001")
	treasury   = common.HexToAddress("0x0000000000000000000000000000000000001002")
	teamAcct   = common.HexToAddress("0x0000000000000000000000000000000000001003")

	minerFunds = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(30))
)

type simParams struct {
	Config config.Config
	Fees   protocol.FeeResolver
	Store  state.Store
	Log    logrus.FieldLogger

	Name               string
	Resume             bool
	Rounds             int
	Miners             int
	Step               time.Duration
	MultiplierTable    []*uint256.Int
	MultiplierDuration uint64
	Start              time.Time
}

type minerReport struct {
	Account common.Address
	Settles int
	Mined   *uint256.Int
	Claimed *uint256.Int
}

type simReport struct {
	Settles     int
	Skipped     int
	Draws       int
	Paid        *uint256.Int
	DrawFees    *uint256.Int
	TotalMinted *uint256.Int
	Rate        *uint256.Int
	Treasury    *uint256.Int
	Miners      []minerReport
}

func (r *simReport) print(w io.Writer) {
	fmt.Fprintf(w, "settles       %d (skipped %d, draws %d)\n", r.Settles, r.Skipped, r.Draws)
	fmt.Fprintf(w, "paid          %s\n", r.Paid.Dec())
	fmt.Fprintf(w, "draw fees     %s\n", r.DrawFees.Dec())
	fmt.Fprintf(w, "treasury      %s\n", r.Treasury.Dec())
	fmt.Fprintf(w, "total minted  %s\n", r.TotalMinted.Dec())
	fmt.Fprintf(w, "rate          %s\n", r.Rate.Dec())
	for _, m := range r.Miners {
		fmt.Fprintf(w, "  %s settles=%d mined=%s claimed=%s\n", m.Account.Hex(), m.Settles, m.Mined.Dec(), m.Claimed.Dec())
	}
}

// minerAddress derives a simulated account from a fresh key.
func minerAddress() (common.Address, error) {
	key, err := ec.NewPrivateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("generate miner key: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(key.PubKey().Compressed())
	return common.BytesToAddress(h.Sum(nil)[12:]), nil
}

func seatConfig(p simParams) (seat.Config, error) {
	params, err := p.Config.AuctionParams()
	if err != nil {
		return seat.Config{}, err
	}
	var amounts [3]*uint256.Int
	for i, s := range []string{p.Config.InitialUps, p.Config.TailUps, p.Config.HalvingAmount} {
		if amounts[i], err = config.ParseAmount(s); err != nil {
			return seat.Config{}, err
		}
	}
	return seat.Config{
		Account:            rigAccount,
		Unit:               unitAsset,
		Quote:              quoteAsset,
		Roles:              rig.Roles{Owner: ownerAcct, Treasury: treasury, Team: teamAcct},
		Auction:            params,
		InitialUps:         amounts[0],
		TailUps:            amounts[1],
		HalvingAmount:      amounts[2],
		Capacity:           p.Config.Capacity,
		MultiplierTable:    p.MultiplierTable,
		MultiplierDuration: p.MultiplierDuration,
		RandomnessEnabled:  true,
	}, nil
}

// runSimulation deploys (or resumes) a seat rig on a fresh MemLedger, lets
// the miners settle slots round-robin, fulfills randomness after every
// settle, claims everyone's fees and stores the final snapshot.
func runSimulation(ctx context.Context, p simParams) (*simReport, error) {
	if p.Miners <= 0 || p.Rounds < 0 {
		return nil, errors.New("simulate: need at least one miner and a non-negative round count")
	}
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg, err := seatConfig(p)
	if err != nil {
		return nil, err
	}
	fee, err := config.ParseAmount(p.Config.RandomnessFee)
	if err != nil {
		return nil, err
	}
	key, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate provider key: %w", err)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	provider, err := randomness.NewSignedProvider(key, fee, salt)
	if err != nil {
		return nil, err
	}

	now := p.Start
	mem := ledger.NewMemLedger()
	if err := mem.SetMinter(unitAsset, rigAccount); err != nil {
		return nil, err
	}
	deps := rig.Deps{
		Ledger:     mem,
		Fees:       p.Fees,
		Randomness: provider,
		Clock:      func() time.Time { return now },
		Log:        log,
	}

	var eng *seat.Engine
	if p.Resume {
		var snap seat.Snapshot
		if err := p.Store.Get(state.KindSeat, p.Name, &snap); err != nil {
			return nil, err
		}
		if eng, err = seat.Restore(cfg, deps, &snap); err != nil {
			return nil, err
		}
		// The ledger is rebuilt empty; escrow must cover the restored claims.
		outstanding, _ := eng.OutstandingClaims()
		mem.Credit(quoteAsset, rigAccount, outstanding)
		log.WithFields(logrus.Fields{"name": p.Name, "slots": eng.Capacity()}).Info("rig resumed")
	} else if eng, err = seat.New(cfg, deps); err != nil {
		return nil, err
	}

	report := &simReport{Paid: new(uint256.Int)}
	miners := make([]minerReport, p.Miners)
	for i := range miners {
		addr, err := minerAddress()
		if err != nil {
			return nil, err
		}
		miners[i] = minerReport{Account: addr, Mined: new(uint256.Int), Claimed: new(uint256.Int)}
		for _, asset := range []ledger.Asset{quoteAsset, ledger.Native} {
			mem.Credit(asset, addr, minerFunds)
			mem.Approve(asset, addr, rigAccount, new(uint256.Int).SetAllOne())
		}
	}
	byAccount := make(map[common.Address]int, len(miners))
	for i, m := range miners {
		byAccount[m.Account] = i
	}

	for round := 0; round < p.Rounds; round++ {
		now = now.Add(p.Step)
		index := uint64(round) % eng.Capacity()
		m := &miners[round%len(miners)]

		slot, err := eng.Slot(index)
		if err != nil {
			return nil, err
		}
		value := new(uint256.Int)
		if drawDue(eng, slot, uint64(now.Unix()), p.MultiplierDuration) {
			value = fee.Clone()
		}
		res, err := eng.Mine(ctx, seat.MineRequest{
			Caller:   m.Account,
			Miner:    m.Account,
			Index:    index,
			EpochID:  slot.EpochID,
			Deadline: uint64(now.Unix()),
			MaxPrice: new(uint256.Int).SetAllOne(),
			URI:      fmt.Sprintf("sim://round/%d", round),
			Value:    value,
		})
		if err != nil {
			log.WithError(err).WithField("round", round).Warn("settle failed")
			report.Skipped++
			continue
		}
		report.Settles++
		report.Paid.Add(report.Paid, res.Price)
		m.Settles++
		if i, ok := byAccount[slot.Holder]; ok {
			miners[i].Mined.Add(miners[i].Mined, res.Minted)
		}
		if res.Requested {
			report.Draws++
			// Delivered outside the engine lock, as an external provider would.
			if _, err := provider.FulfillAll(ctx); err != nil {
				log.WithError(err).Warn("randomness delivery failed")
			}
		}
	}

	for i := range miners {
		amount, err := eng.Claim(ctx, miners[i].Account)
		if err != nil {
			continue
		}
		miners[i].Claimed = amount
	}
	if err := p.Store.Put(state.KindSeat, p.Name, eng.Snapshot()); err != nil {
		return nil, err
	}

	sort.Slice(miners, func(i, j int) bool { return miners[i].Settles > miners[j].Settles })
	report.Miners = miners
	report.TotalMinted = eng.TotalMinted()
	report.Rate = eng.Rate()
	report.Treasury = mem.BalanceOf(quoteAsset, treasury)
	report.DrawFees = mem.BalanceOf(ledger.Native, provider.FeeAccount())
	return report, nil
}

// drawDue reports whether settling slot at now will request a draw.
func drawDue(eng *seat.Engine, slot seat.Slot, now, duration uint64) bool {
	if !eng.RandomnessEnabled() {
		return false
	}
	return now > slot.LastMultiplierUpdate && now-slot.LastMultiplierUpdate > duration
}
