package rig

import "errors"

var (
	// ErrNilParam indicates a required dependency or parameter is nil.
	ErrNilParam = errors.New("rig: required parameter is nil")

	// ErrZeroAddress indicates a required account is the zero address.
	ErrZeroAddress = errors.New("rig: zero address")

	// ErrNotOwner indicates a restricted setter was called by someone other than the owner.
	ErrNotOwner = errors.New("rig: caller is not the owner")
)
