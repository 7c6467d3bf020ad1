package auth

import (
	"slices"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// AuthMethod indicates which credential authorized a connection.
type AuthMethod string

const (
	AuthMethodPublic      AuthMethod = "public"
	AuthMethodAPIKey      AuthMethod = "api_key"
	AuthMethodAccessToken AuthMethod = "access_token"
)

// Identity is the outcome of a successful credential check.
type Identity struct {
	// Method is the credential kind that was checked.
	Method AuthMethod

	// UserPublicID is the token owner. Zero unless Method is
	// AuthMethodAccessToken.
	UserPublicID tokenstore.UserPublicID

	// Roles are bound to the connection.
	Roles []protocol.Role

	// ConnID identifies the connection the identity was bound to.
	ConnID string
}

// HasRole reports whether the identity holds r.
func (id *Identity) HasRole(r protocol.Role) bool {
	return protocol.ContainsRole(id.Roles, r)
}

// IsUser reports whether the identity belongs to an end user.
func (id *Identity) IsUser() bool {
	return id.Method == AuthMethodAccessToken
}

func cloneRoles(roles []protocol.Role) []protocol.Role {
	return slices.Clone(roles)
}
