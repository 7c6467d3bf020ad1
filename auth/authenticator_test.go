package auth

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/secret"
	"github.com/jonwraymond/honeyid/tokenstore"
)

func TestAuthenticators(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	token := tokenstore.NewAccessToken()
	if err := store.Insert(ctx, 3, token); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tests := []struct {
		name       string
		authn      Authenticator
		credential string
		wantMethod AuthMethod
		wantRoles  []protocol.Role
		wantUser   tokenstore.UserPublicID
		wantErr    error
	}{
		{
			name:       "public default",
			authn:      NewPublicAuthenticator(),
			wantMethod: AuthMethodPublic,
			wantRoles:  []protocol.Role{protocol.RolePublic},
		},
		{
			name:       "api key custom roles",
			authn:      NewAPIKeyAuthenticator(NewAPIKeyValidator(secret.New("k")), protocol.RolePlatformSupport),
			credential: "k",
			wantMethod: AuthMethodAPIKey,
			wantRoles:  []protocol.Role{protocol.RolePlatformSupport},
		},
		{
			name:       "api key wrong",
			authn:      NewAPIKeyAuthenticator(NewAPIKeyValidator(secret.New("k"))),
			credential: "nope",
			wantMethod: AuthMethodAPIKey,
			wantErr:    ErrIncorrectAPIKey,
		},
		{
			name:       "access token",
			authn:      NewAccessTokenAuthenticator(store, StaticRoles{protocol.RoleAppAdmin}),
			credential: token.String(),
			wantMethod: AuthMethodAccessToken,
			wantRoles:  []protocol.Role{protocol.RoleAppAdmin},
			wantUser:   3,
		},
		{
			name:       "access token unknown",
			authn:      NewAccessTokenAuthenticator(store, StaticRoles{protocol.RoleAppAdmin}),
			credential: tokenstore.NewAccessToken().String(),
			wantMethod: AuthMethodAccessToken,
			wantErr:    ErrWrongAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.authn.Method(); got != tt.wantMethod {
				t.Errorf("Method() = %v, want %v", got, tt.wantMethod)
			}
			id, err := tt.authn.Authenticate(ctx, tt.credential)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if !slices.Equal(id.Roles, tt.wantRoles) {
				t.Errorf("Roles = %v, want %v", id.Roles, tt.wantRoles)
			}
			if id.UserPublicID != tt.wantUser {
				t.Errorf("UserPublicID = %v, want %v", id.UserPublicID, tt.wantUser)
			}
		})
	}
}

type failingTokens struct{ err error }

func (f failingTokens) Insert(context.Context, tokenstore.UserPublicID, tokenstore.AccessToken) error {
	return f.err
}

func (f failingTokens) Validate(context.Context, tokenstore.AccessToken) (tokenstore.UserPublicID, error) {
	return 0, f.err
}

func TestAccessTokenAuthenticator_StoreFailure(t *testing.T) {
	errBackend := errors.New("backend down")
	authn := NewAccessTokenAuthenticator(failingTokens{err: errBackend}, StaticRoles{protocol.RoleAppAdmin})

	_, err := authn.Authenticate(context.Background(), tokenstore.NewAccessToken().String())
	if !errors.Is(err, errBackend) {
		t.Fatalf("Authenticate() error = %v, want %v", err, errBackend)
	}
	if errors.Is(err, ErrWrongAccessToken) {
		t.Errorf("Authenticate() error = %v, want no ErrWrongAccessToken", err)
	}
	if got := ErrorCode(err); got != protocol.ErrorCodeInternalError {
		t.Errorf("ErrorCode() = %v, want %v", got, protocol.ErrorCodeInternalError)
	}
}

func TestPublicAuthenticator_RolesNotShared(t *testing.T) {
	a := NewPublicAuthenticator()
	id, _ := a.Authenticate(context.Background(), "")
	id.Roles[0] = protocol.RolePlatformAdmin

	again, _ := a.Authenticate(context.Background(), "")
	if again.Roles[0] != protocol.RolePublic {
		t.Errorf("Roles[0] = %v, want %v", again.Roles[0], protocol.RolePublic)
	}
}

func TestAuthenticatorFunc(t *testing.T) {
	a := NewAuthenticatorFunc("custom", func(_ context.Context, credential string) (*Identity, error) {
		if credential != "letmein" {
			return nil, ErrForbidden
		}
		return &Identity{Method: "custom", Roles: []protocol.Role{protocol.RoleAppSupport}}, nil
	})
	h := NewHandler[map[string]string, struct{}](a, func(req map[string]string) string { return req["pass"] }, nil)

	conn := newFakeConn()
	if _, err := h.Connect(context.Background(), conn, []byte(`{"pass":"letmein"}`)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if want := []protocol.Role{protocol.RoleAppSupport}; !slices.Equal(conn.Roles(), want) {
		t.Errorf("Roles() = %v, want %v", conn.Roles(), want)
	}
	if _, err := h.Connect(context.Background(), newFakeConn(), []byte(`{"pass":"x"}`)); !errors.Is(err, ErrForbidden) {
		t.Errorf("Connect() error = %v, want %v", err, ErrForbidden)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Error("IdentityFromContext(empty) != nil")
	}
	if _, ok := UserPublicIDFromContext(ctx); ok {
		t.Error("UserPublicIDFromContext(empty) ok = true")
	}

	service := &Identity{Method: AuthMethodAPIKey, Roles: []protocol.Role{protocol.RoleAppAPIKey}}
	if _, ok := UserPublicIDFromContext(WithIdentity(ctx, service)); ok {
		t.Error("UserPublicIDFromContext(service) ok = true, want false")
	}
	if !service.HasRole(protocol.RoleAppAPIKey) || service.IsUser() {
		t.Errorf("service identity HasRole/IsUser = %v/%v", service.HasRole(protocol.RoleAppAPIKey), service.IsUser())
	}

	user := &Identity{Method: AuthMethodAccessToken, UserPublicID: 11}
	got, ok := UserPublicIDFromContext(WithIdentity(ctx, user))
	if !ok || got != 11 {
		t.Errorf("UserPublicIDFromContext() = %v, %v, want 11, true", got, ok)
	}
}
