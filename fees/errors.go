package fees

import "errors"

var (
	// ErrNoRemainder indicates no recipient was marked to absorb the remainder.
	ErrNoRemainder = errors.New("fees: no remainder recipient")

	// ErrMultipleRemainders indicates more than one remainder recipient.
	ErrMultipleRemainders = errors.New("fees: more than one remainder recipient")

	// ErrBpsOverflow indicates the fixed shares add up to more than Divisor.
	ErrBpsOverflow = errors.New("fees: basis points exceed divisor")

	// ErrZeroRemainderAccount indicates the remainder recipient is the zero address.
	ErrZeroRemainderAccount = errors.New("fees: remainder recipient is the zero address")

	// ErrNothingToClaim indicates the account has no claimable balance.
	ErrNothingToClaim = errors.New("fees: nothing to claim")
)
