package state

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("state: required parameter is nil")

	// ErrUnknownKind indicates a snapshot kind without a bucket.
	ErrUnknownKind = errors.New("state: unknown snapshot kind")

	// ErrEmptyName indicates a snapshot was addressed without a name.
	ErrEmptyName = errors.New("state: empty snapshot name")

	// ErrNotFound indicates no snapshot is stored under the name.
	ErrNotFound = errors.New("state: snapshot not found")
)
