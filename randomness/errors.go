package randomness

import "errors"

var (
	// ErrIncorrectFee indicates the attached fee differs from the provider fee.
	ErrIncorrectFee = errors.New("randomness: fee must equal the provider fee exactly")

	// ErrUnknownRequest indicates the request ID is not pending at the provider.
	ErrUnknownRequest = errors.New("randomness: unknown request")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("randomness: required parameter is nil")

	// ErrInvalidProof indicates a randomness proof does not verify.
	ErrInvalidProof = errors.New("randomness: invalid proof")

	// ErrEmptyTable indicates selection from an empty table.
	ErrEmptyTable = errors.New("randomness: empty selection table")
)
