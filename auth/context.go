package auth

import (
	"context"

	"github.com/jonwraymond/honeyid/tokenstore"
)

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with id attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the attached identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// UserPublicIDFromContext returns the user bound to the context and whether
// one is present.
func UserPublicIDFromContext(ctx context.Context) (tokenstore.UserPublicID, bool) {
	id := IdentityFromContext(ctx)
	if id == nil || !id.IsUser() {
		return 0, false
	}
	return id.UserPublicID, true
}
