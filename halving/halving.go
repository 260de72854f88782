// Package halving implements the emission-rate schedules used by the rigs.
//
// Two policies exist. Supply halves the rate each time cumulative minted
// supply crosses the next threshold of the geometric series
//
//	T[n] = halvingAmount * (2 - 1/2^n)
//
// and Time halves it once per elapsed halving period. Both are floored at a
// tail rate and bounded to MaxHalvings steps.
package halving

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MaxHalvings bounds the number of halving steps either policy evaluates.
const MaxHalvings = 64

// Schedule yields the emission rate for the current minted supply and the
// seconds elapsed since the schedule started. A policy ignores the input it
// does not depend on.
type Schedule interface {
	Rate(totalMinted *uint256.Int, elapsed uint64) *uint256.Int
}

func validateRates(initial, tail *uint256.Int) error {
	if initial == nil || tail == nil {
		return fmt.Errorf("%w: rate", ErrNilParam)
	}
	if tail.IsZero() {
		return ErrZeroTail
	}
	if tail.Gt(initial) {
		return fmt.Errorf("%w: tail %s, initial %s", ErrTailAboveInitial, tail.Dec(), initial.Dec())
	}
	return nil
}

// floored returns initial >> n, never below tail.
func floored(initial, tail *uint256.Int, n uint) *uint256.Int {
	if n >= MaxHalvings {
		return tail.Clone()
	}
	rate := new(uint256.Int).Rsh(initial, n)
	if rate.Lt(tail) {
		return tail.Clone()
	}
	return rate
}

// Supply is the supply-threshold policy.
type Supply struct {
	initial *uint256.Int
	tail    *uint256.Int
	amount  *uint256.Int
}

// NewSupply creates a supply-threshold schedule.
func NewSupply(initial, tail, halvingAmount *uint256.Int) (*Supply, error) {
	if err := validateRates(initial, tail); err != nil {
		return nil, err
	}
	if halvingAmount == nil || halvingAmount.IsZero() {
		return nil, ErrZeroHalvingAmount
	}
	return &Supply{initial: initial.Clone(), tail: tail.Clone(), amount: halvingAmount.Clone()}, nil
}

// Halvings counts the thresholds crossed by totalMinted. The loop stops as
// soon as the tail rate already applies.
func (s *Supply) Halvings(totalMinted *uint256.Int) uint {
	var n uint
	threshold := s.amount.Clone()
	for n < MaxHalvings && !totalMinted.Lt(threshold) {
		n++
		if new(uint256.Int).Rsh(s.initial, n).Cmp(s.tail) <= 0 {
			break
		}
		threshold.Add(threshold, new(uint256.Int).Rsh(s.amount, n))
	}
	return n
}

// RateAt returns the rate for a minted supply.
func (s *Supply) RateAt(totalMinted *uint256.Int) *uint256.Int {
	if totalMinted == nil {
		totalMinted = new(uint256.Int)
	}
	return floored(s.initial, s.tail, s.Halvings(totalMinted))
}

// Rate implements Schedule.
func (s *Supply) Rate(totalMinted *uint256.Int, _ uint64) *uint256.Int {
	return s.RateAt(totalMinted)
}

// Initial returns the starting rate.
func (s *Supply) Initial() *uint256.Int { return s.initial.Clone() }

// Tail returns the floor rate.
func (s *Supply) Tail() *uint256.Int { return s.tail.Clone() }

// Time is the time-based policy.
type Time struct {
	initial *uint256.Int
	tail    *uint256.Int
	period  uint64
}

// NewTime creates a time-based schedule halving every period seconds.
func NewTime(initial, tail *uint256.Int, period uint64) (*Time, error) {
	if err := validateRates(initial, tail); err != nil {
		return nil, err
	}
	if period == 0 {
		return nil, ErrZeroPeriod
	}
	return &Time{initial: initial.Clone(), tail: tail.Clone(), period: period}, nil
}

// Periods returns the number of whole halving periods in elapsed.
func (t *Time) Periods(elapsed uint64) uint64 {
	return elapsed / t.period
}

// RateAt returns the rate after elapsed seconds.
func (t *Time) RateAt(elapsed uint64) *uint256.Int {
	periods := t.Periods(elapsed)
	if periods >= MaxHalvings {
		return t.tail.Clone()
	}
	return floored(t.initial, t.tail, uint(periods))
}

// Rate implements Schedule.
func (t *Time) Rate(_ *uint256.Int, elapsed uint64) *uint256.Int {
	return t.RateAt(elapsed)
}

// Period returns the halving period in the schedule's time unit.
func (t *Time) Period() uint64 { return t.period }

// Initial returns the starting rate.
func (t *Time) Initial() *uint256.Int { return t.initial.Clone() }

// Tail returns the floor rate.
func (t *Time) Tail() *uint256.Int { return t.tail.Clone() }
