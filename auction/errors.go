package auction

import "errors"

var (
	// ErrInvalidEpochPeriod indicates the epoch period is outside [MinEpochPeriod, MaxEpochPeriod].
	ErrInvalidEpochPeriod = errors.New("auction: epoch period out of range")

	// ErrInvalidPriceMultiplier indicates the price multiplier is outside [MinPriceMultiplier, MaxPriceMultiplier].
	ErrInvalidPriceMultiplier = errors.New("auction: price multiplier out of range")

	// ErrInvalidMinInitPrice indicates the minimum init price is outside [MinInitPriceFloor, AbsMaxInitPrice].
	ErrInvalidMinInitPrice = errors.New("auction: minimum init price out of range")

	// ErrDeadlinePassed indicates the caller's deadline is earlier than the current time.
	ErrDeadlinePassed = errors.New("auction: deadline passed")

	// ErrEpochMismatch indicates the caller targeted an epoch that is no longer live.
	ErrEpochMismatch = errors.New("auction: epoch mismatch")

	// ErrMaxPriceExceeded indicates the current price is above the caller's cap.
	ErrMaxPriceExceeded = errors.New("auction: max price exceeded")
)
