package seat

import "errors"

var (
	// ErrInvalidConfig indicates a deployment parameter is out of range.
	ErrInvalidConfig = errors.New("seat: invalid config")

	// ErrInvalidIndex indicates a slot index at or beyond capacity.
	ErrInvalidIndex = errors.New("seat: invalid slot index")

	// ErrZeroMiner indicates a settle naming the zero address as the new holder.
	ErrZeroMiner = errors.New("seat: zero miner")

	// ErrCapacityNotIncreased indicates a capacity change that does not grow the rig.
	ErrCapacityNotIncreased = errors.New("seat: capacity must increase")

	// ErrCapacityTooLarge indicates a capacity above MaxCapacity.
	ErrCapacityTooLarge = errors.New("seat: capacity above maximum")

	// ErrInvalidMultiplier indicates a multiplier table entry outside [1x, 10x].
	ErrInvalidMultiplier = errors.New("seat: invalid multiplier")

	// ErrRandomnessUnavailable indicates randomness was enabled without a provider.
	ErrRandomnessUnavailable = errors.New("seat: no randomness provider")
)
