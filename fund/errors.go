package fund

import "errors"

var (
	// ErrInvalidConfig indicates a deployment parameter is out of range.
	ErrInvalidConfig = errors.New("fund: invalid config")

	// ErrBelowMinimum indicates a contribution below the configured minimum.
	ErrBelowMinimum = errors.New("fund: contribution below minimum")

	// ErrDayNotClosed indicates a claim for the current or a future day.
	ErrDayNotClosed = errors.New("fund: day not closed")

	// ErrAlreadyClaimed indicates the account already claimed that day.
	ErrAlreadyClaimed = errors.New("fund: already claimed")

	// ErrNoContribution indicates the account contributed nothing that day.
	ErrNoContribution = errors.New("fund: no contribution")

	// ErrNoDays indicates a batch claim with no days.
	ErrNoDays = errors.New("fund: no days given")
)
