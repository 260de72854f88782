package content

import "errors"

var (
	// ErrInvalidConfig indicates a deployment parameter is out of range.
	ErrInvalidConfig = errors.New("content: invalid config")

	// ErrUnknownItem indicates an item ID that was never created.
	ErrUnknownItem = errors.New("content: unknown item")

	// ErrZeroCreator indicates an item created for the zero address.
	ErrZeroCreator = errors.New("content: zero creator")

	// ErrZeroCollector indicates a collection for the zero address.
	ErrZeroCollector = errors.New("content: zero collector")

	// ErrFreeCollect indicates a zero-price collection while RejectFreeCollect is set.
	ErrFreeCollect = errors.New("content: free collection rejected")

	// ErrInsufficientWeight indicates a reward-pool withdrawal above the account's weight.
	ErrInsufficientWeight = errors.New("content: insufficient stake weight")
)
