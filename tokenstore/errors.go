package tokenstore

import "errors"

// Sentinel errors for store operations.
var (
	// ErrDuplicateKey is returned when an insert collides on owner or token.
	ErrDuplicateKey = errors.New("tokenstore: duplicate key")

	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("tokenstore: not found")

	// ErrInvalidToken is returned when a token string is not a UUID.
	ErrInvalidToken = errors.New("tokenstore: invalid access token")
)
