package content

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// ItemRecord is the persisted form of an Item.
type ItemRecord struct {
	EpochID   uint64
	InitPrice rig.Amount
	StartTime uint64
	Creator   common.Address
	Owner     common.Address
	URI       string
	Stake     rig.Amount
}

// Snapshot is the mutable state of a content rig. Reward-pool weights
// belong to the pool and are not included.
type Snapshot struct {
	Roles             rig.Roles
	Items             []ItemRecord
	Claims            map[common.Address]rig.Amount
	Routed            rig.Amount
	RejectFreeCollect bool
}

// Snapshot captures the rig state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Roles:             e.roles,
		Claims:            rig.EncodeClaims(e.claims),
		Routed:            rig.EncodeAmount(e.claims.Routed()),
		RejectFreeCollect: e.rejectFreeCollect,
	}
	for _, it := range e.items {
		snap.Items = append(snap.Items, ItemRecord{
			EpochID:   it.EpochID,
			InitPrice: rig.EncodeAmount(it.InitPrice),
			StartTime: it.StartTime,
			Creator:   it.Creator,
			Owner:     it.Owner,
			URI:       it.URI,
			Stake:     rig.EncodeAmount(it.Stake),
		})
	}
	return snap
}

// Restore resumes a rig from snap. cfg.Roles and cfg.RejectFreeCollect are
// superseded.
func Restore(cfg Config, deps rig.Deps, pool RewardPool, snap *Snapshot) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", rig.ErrNilParam)
	}
	cfg.Roles = snap.Roles
	cfg.RejectFreeCollect = snap.RejectFreeCollect
	e, err := New(cfg, deps, pool)
	if err != nil {
		return nil, err
	}
	e.claims = rig.DecodeClaims(snap.Claims, snap.Routed)
	for i, r := range snap.Items {
		e.items = append(e.items, Item{
			State:   auction.State{EpochID: r.EpochID, InitPrice: r.InitPrice.Int(), StartTime: r.StartTime},
			ID:      uint64(i) + 1,
			Creator: r.Creator,
			Owner:   r.Owner,
			URI:     r.URI,
			Stake:   r.Stake.Int(),
		})
	}
	return e, nil
}
