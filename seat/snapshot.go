package seat

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/emission"
	"github.com/Heesho/mineport-monorepo-sub003/halving"
	"github.com/Heesho/mineport-monorepo-sub003/randomness"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// SlotRecord is the persisted form of a Slot.
type SlotRecord struct {
	EpochID              uint64
	InitPrice            rig.Amount
	StartTime            uint64
	Ups                  rig.Amount
	Multiplier           rig.Amount
	LastMultiplierUpdate uint64
	Holder               common.Address
	URI                  string
}

// Snapshot is the mutable state of a seat rig. Config is not included.
type Snapshot struct {
	Roles       rig.Roles
	Slots       []SlotRecord
	StartTime   uint64
	TotalMinted rig.Amount
	Claims      map[common.Address]rig.Amount
	Routed      rig.Amount
	Randomness  bool
	Pending     map[randomness.RequestID]randomness.Tag
}

// Snapshot captures the rig state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Roles:       e.roles,
		StartTime:   e.emission.StartTime(),
		TotalMinted: rig.EncodeAmount(e.emission.TotalMinted()),
		Claims:      rig.EncodeClaims(e.claims),
		Routed:      rig.EncodeAmount(e.claims.Routed()),
		Randomness:  e.randomness,
		Pending:     e.gateway.Tracked(),
	}
	for _, s := range e.slots {
		snap.Slots = append(snap.Slots, SlotRecord{
			EpochID:              s.EpochID,
			InitPrice:            rig.EncodeAmount(s.InitPrice),
			StartTime:            s.StartTime,
			Ups:                  rig.EncodeAmount(s.Ups),
			Multiplier:           rig.EncodeAmount(s.Multiplier),
			LastMultiplierUpdate: s.LastMultiplierUpdate,
			Holder:               s.Holder,
			URI:                  s.URI,
		})
	}
	return snap
}

// Restore resumes a rig from snap under cfg. cfg.Roles and cfg.Capacity are
// superseded by the snapshot.
func Restore(cfg Config, deps rig.Deps, snap *Snapshot) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", rig.ErrNilParam)
	}
	if len(snap.Slots) == 0 || uint64(len(snap.Slots)) > MaxCapacity {
		return nil, fmt.Errorf("%w: %d slots in snapshot", ErrInvalidConfig, len(snap.Slots))
	}
	cfg.Roles = snap.Roles
	cfg.Capacity = uint64(len(snap.Slots))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if snap.Randomness && deps.Randomness == nil {
		return nil, ErrRandomnessUnavailable
	}
	schedule, err := halving.NewSupply(cfg.InitialUps, cfg.TailUps, cfg.HalvingAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := newEngine(cfg, deps, schedule)
	e.emission = emission.Restore(cfg.Unit, snap.StartTime, snap.TotalMinted.Int())
	e.claims = rig.DecodeClaims(snap.Claims, snap.Routed)
	e.randomness = snap.Randomness
	rig.RestorePending(e.gateway, snap.Pending)
	for _, r := range snap.Slots {
		e.slots = append(e.slots, Slot{
			State:                auction.State{EpochID: r.EpochID, InitPrice: r.InitPrice.Int(), StartTime: r.StartTime},
			Ups:                  r.Ups.Int(),
			Multiplier:           r.Multiplier.Int(),
			LastMultiplierUpdate: r.LastMultiplierUpdate,
			Holder:               r.Holder,
			URI:                  r.URI,
		})
	}
	return e, nil
}

