package ledger

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")

	// ErrZeroAddress indicates an operation targets the zero address.
	ErrZeroAddress = errors.New("ledger: zero address")

	// ErrInsufficientBalance indicates the sender's balance cannot cover a transfer.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientAllowance indicates the batch sender is not approved for the amount.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")

	// ErrBlocked indicates the sender or recipient is on the asset's blocklist.
	ErrBlocked = errors.New("ledger: account is blocked")

	// ErrUnauthorizedMinter indicates the batch sender does not hold the asset's mint right.
	ErrUnauthorizedMinter = errors.New("ledger: sender is not the minter")

	// ErrMinterAlreadySet indicates the mint right has already been granted.
	ErrMinterAlreadySet = errors.New("ledger: minter already set")

	// ErrSupplyOverflow indicates a mint would overflow total supply.
	ErrSupplyOverflow = errors.New("ledger: supply overflow")

	// ErrUnknownOp indicates an operation type the ledger does not support.
	ErrUnknownOp = errors.New("ledger: unknown operation")
)
