package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// Authenticator checks one kind of credential and returns the identity it
// grants.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a rejected credential returns an error carrying a wire code
//     (*Error or *BadRequestError); anything else is an internal fault.
type Authenticator interface {
	// Method names the credential kind.
	Method() AuthMethod

	// Authenticate checks credential. Public authenticators ignore it.
	Authenticate(ctx context.Context, credential string) (*Identity, error)
}

// PublicAuthenticator grants fixed roles to anyone.
type PublicAuthenticator struct {
	roles []protocol.Role
}

// NewPublicAuthenticator grants roles, or [Public] when none are given.
func NewPublicAuthenticator(roles ...protocol.Role) *PublicAuthenticator {
	if len(roles) == 0 {
		roles = []protocol.Role{protocol.RolePublic}
	}
	return &PublicAuthenticator{roles: cloneRoles(roles)}
}

// Method returns AuthMethodPublic.
func (a *PublicAuthenticator) Method() AuthMethod { return AuthMethodPublic }

// Authenticate always succeeds.
func (a *PublicAuthenticator) Authenticate(_ context.Context, _ string) (*Identity, error) {
	return &Identity{Method: AuthMethodPublic, Roles: cloneRoles(a.roles)}, nil
}

// APIKeyAuthenticator grants service roles to holders of the configured API
// key.
type APIKeyAuthenticator struct {
	validator *APIKeyValidator
	roles     []protocol.Role
}

// NewAPIKeyAuthenticator grants roles, or [AppAPIKey] when none are given,
// to credentials v accepts.
func NewAPIKeyAuthenticator(v *APIKeyValidator, roles ...protocol.Role) *APIKeyAuthenticator {
	if len(roles) == 0 {
		roles = []protocol.Role{protocol.RoleAppAPIKey}
	}
	return &APIKeyAuthenticator{validator: v, roles: cloneRoles(roles)}
}

// Method returns AuthMethodAPIKey.
func (a *APIKeyAuthenticator) Method() AuthMethod { return AuthMethodAPIKey }

// Authenticate validates credential as an API key.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, credential string) (*Identity, error) {
	if err := a.validator.Validate(credential); err != nil {
		return nil, err
	}
	return &Identity{Method: AuthMethodAPIKey, Roles: cloneRoles(a.roles)}, nil
}

// AccessTokenAuthenticator resolves access tokens to their owner and the
// owner's roles.
type AccessTokenAuthenticator struct {
	tokens tokenstore.Store
	roles  RoleLookup
}

// NewAccessTokenAuthenticator validates tokens against tokens and maps
// owners to roles through roles.
func NewAccessTokenAuthenticator(tokens tokenstore.Store, roles RoleLookup) *AccessTokenAuthenticator {
	return &AccessTokenAuthenticator{tokens: tokens, roles: roles}
}

// Method returns AuthMethodAccessToken.
func (a *AccessTokenAuthenticator) Method() AuthMethod { return AuthMethodAccessToken }

// Authenticate parses credential as a UUID access token and looks it up.
// Unknown tokens yield ErrWrongAccessToken wrapping the store's reason. Any
// other store failure is returned uncoded and reaches the wire as an
// internal error.
func (a *AccessTokenAuthenticator) Authenticate(ctx context.Context, credential string) (*Identity, error) {
	token, err := tokenstore.ParseAccessToken(credential)
	if err != nil {
		return nil, &BadRequestError{Reason: "`accessToken` is not a valid UUID", Err: err}
	}
	owner, err := a.tokens.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrWrongAccessToken, err)
		}
		return nil, fmt.Errorf("auth: validate access token: %w", err)
	}
	roles, err := a.roles.RolesFor(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("auth: roles for user %s: %w", owner, err)
	}
	return &Identity{
		Method:       AuthMethodAccessToken,
		UserPublicID: owner,
		Roles:        cloneRoles(roles),
	}, nil
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc struct {
	method AuthMethod
	fn     func(ctx context.Context, credential string) (*Identity, error)
}

// NewAuthenticatorFunc returns an Authenticator reporting method and
// delegating to fn.
func NewAuthenticatorFunc(method AuthMethod, fn func(ctx context.Context, credential string) (*Identity, error)) *AuthenticatorFunc {
	return &AuthenticatorFunc{method: method, fn: fn}
}

// Method returns the configured method.
func (f *AuthenticatorFunc) Method() AuthMethod { return f.method }

// Authenticate calls the wrapped function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, credential string) (*Identity, error) {
	return f.fn(ctx, credential)
}

var (
	_ Authenticator = (*PublicAuthenticator)(nil)
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ Authenticator = (*AccessTokenAuthenticator)(nil)
	_ Authenticator = (*AuthenticatorFunc)(nil)
)
