package spin

import "errors"

var (
	// ErrInvalidConfig indicates a deployment parameter is out of range.
	ErrInvalidConfig = errors.New("spin: invalid config")

	// ErrInvalidOdds indicates an empty odds table or an entry outside [MinOddsBps, MaxOddsBps].
	ErrInvalidOdds = errors.New("spin: invalid odds")

	// ErrZeroSpinner indicates a spin for the zero address.
	ErrZeroSpinner = errors.New("spin: zero spinner")
)
