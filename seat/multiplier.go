package seat

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/Heesho/mineport-monorepo-sub003/randomness"
)

// OnRandomness implements randomness.Callback. The drawn multiplier applies
// only if the slot is still in the epoch the draw was requested for.
func (e *Engine) OnRandomness(ctx context.Context, id randomness.RequestID, value *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.gateway.Deliver(ctx, drawTarget{e}, id, value)
	return err
}

// drawTarget applies draws with mu already held.
type drawTarget struct{ e *Engine }

func (t drawTarget) TagCurrent(tag randomness.Tag) bool {
	if tag.Target >= uint64(len(t.e.slots)) {
		return false
	}
	return t.e.slots[tag.Target].EpochID == tag.Epoch
}

func (t drawTarget) ApplyRandomness(_ context.Context, tag randomness.Tag, value *uint256.Int) error {
	idx, err := randomness.Select(value, len(t.e.cfg.MultiplierTable))
	if err != nil {
		return fmt.Errorf("select multiplier: %w", err)
	}
	s := &t.e.slots[tag.Target]
	s.Multiplier = t.e.cfg.MultiplierTable[idx].Clone()
	s.LastMultiplierUpdate = t.e.deps.Now()

	t.e.log.WithFields(logrus.Fields{
		"index":      tag.Target,
		"epoch":      tag.Epoch,
		"multiplier": s.Multiplier.Dec(),
	}).Info("multiplier drawn")
	return nil
}
