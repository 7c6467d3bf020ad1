package tokenstore

import "context"

// Store issues and validates access tokens.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Insert checks both unique indexes and writes atomically.
// - Validate is a pure lookup and observes every completed Insert.
type Store interface {
	// Insert stores token for owner. Returns ErrDuplicateKey if owner
	// already has a token or token is already stored.
	Insert(ctx context.Context, owner UserPublicID, token AccessToken) error

	// Validate returns the owner of token, or ErrNotFound.
	Validate(ctx context.Context, token AccessToken) (UserPublicID, error)
}
