package fund

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/mineport-monorepo-sub003/emission"
	"github.com/Heesho/mineport-monorepo-sub003/rig"
)

// DayRecord is the persisted form of a Day.
type DayRecord struct {
	Total         rig.Amount
	Contributions map[common.Address]rig.Amount
	Claimed       []common.Address
}

// Snapshot is the mutable state of a fund rig.
type Snapshot struct {
	Roles       rig.Roles
	Recipient   common.Address
	StartTime   uint64
	TotalMinted rig.Amount
	Days        map[uint64]DayRecord
}

// Snapshot captures the rig state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Roles:       e.roles,
		Recipient:   e.recipient,
		StartTime:   e.emission.StartTime(),
		TotalMinted: rig.EncodeAmount(e.emission.TotalMinted()),
		Days:        make(map[uint64]DayRecord, len(e.days)),
	}
	for day, d := range e.days {
		rec := DayRecord{
			Total:         rig.EncodeAmount(d.Total),
			Contributions: make(map[common.Address]rig.Amount, len(d.Contributions)),
		}
		for acct, c := range d.Contributions {
			rec.Contributions[acct] = rig.EncodeAmount(c)
		}
		for acct, claimed := range d.Claimed {
			if claimed {
				rec.Claimed = append(rec.Claimed, acct)
			}
		}
		snap.Days[day] = rec
	}
	return snap
}

// Restore resumes a rig from snap. cfg.Roles and cfg.Recipient are superseded.
func Restore(cfg Config, deps rig.Deps, snap *Snapshot) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot", rig.ErrNilParam)
	}
	cfg.Roles = snap.Roles
	cfg.Recipient = snap.Recipient
	e, err := build(cfg, deps)
	if err != nil {
		return nil, err
	}
	e.emission = emission.Restore(cfg.Unit, snap.StartTime, snap.TotalMinted.Int())
	for day, rec := range snap.Days {
		d := newDay()
		d.Total = rec.Total.Int()
		for acct, c := range rec.Contributions {
			d.Contributions[acct] = c.Int()
		}
		for _, acct := range rec.Claimed {
			d.Claimed[acct] = true
		}
		e.days[day] = d
	}
	return e, nil
}
