package spin

import (
	"fmt"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/emission"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// Snapshot is the mutable state of a spin rig.
type Snapshot struct {
	Roles       rig.Roles
	Odds        []uint64
	EpochID     uint64
	InitPrice   rig.Amount
	AuctionTime uint64
	StartTime   uint64
	TotalMinted rig.Amount
	Pool        rig.Amount
	LastAccrual uint64
	Pending     map[randomness.RequestID]randomness.Tag
}

// Snapshot captures the rig state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Snapshot{
		Roles:       e.roles,
		Odds:        append([]uint64(nil), e.cfg.Odds...),
		EpochID:     e.state.EpochID,
		InitPrice:   rig.EncodeAmount(e.state.InitPrice),
		AuctionTime: e.state.StartTime,
		StartTime:   e.emission.StartTime(),
		TotalMinted: rig.EncodeAmount(e.emission.TotalMinted()),
		Pool:        rig.EncodeAmount(e.pool),
		LastAccrual: e.lastAccrual,
		Pending:     e.gateway.Tracked(),
	}
}

// Restore resumes a rig from snap. cfg.Roles and cfg.Odds are superseded.
func Restore(cfg Config, deps rig.Deps, snap *Snapshot) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", rig.ErrNilParam)
	}
	cfg.Roles = snap.Roles
	cfg.Odds = snap.Odds
	e, err := build(cfg, deps)
	if err != nil {
		return nil, err
	}
	e.emission = emission.Restore(cfg.Unit, snap.StartTime, snap.TotalMinted.Int())
	e.state = auction.State{EpochID: snap.EpochID, InitPrice: snap.InitPrice.Int(), StartTime: snap.AuctionTime}
	e.pool = snap.Pool.Int()
	e.lastAccrual = snap.LastAccrual
	rig.RestorePending(e.gateway, snap.Pending)
	return e, nil
}
