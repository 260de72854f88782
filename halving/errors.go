package halving

import "errors"

var (
	// ErrZeroTail indicates a floor rate of zero.
	ErrZeroTail = errors.New("halving: tail rate must be positive")

	// ErrTailAboveInitial indicates the floor rate exceeds the initial rate.
	ErrTailAboveInitial = errors.New("halving: tail rate exceeds initial rate")

	// ErrZeroHalvingAmount indicates a supply threshold of zero.
	ErrZeroHalvingAmount = errors.New("halving: halving amount must be positive")

	// ErrZeroPeriod indicates a halving period of zero.
	ErrZeroPeriod = errors.New("halving: halving period must be positive")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("halving: required parameter is nil")
)
