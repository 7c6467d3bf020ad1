package userstore

import "errors"

var (
	// ErrNotFound is returned for users the store has never seen.
	ErrNotFound = errors.New("userstore: user not found")

	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("userstore: corrupt record")
)
