package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Request is the outbound frame envelope.
type Request struct {
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Response is the inbound success envelope.
type Response struct {
	Params json.RawMessage `json:"params"`
}

// ErrorResponse is the inbound failure envelope. Params is usually a JSON
// string message but may be a structured value.
type ErrorResponse struct {
	Code   ErrorCode       `json:"code"`
	Params json.RawMessage `json:"params"`
}

// Message returns Params as text: the string itself when Params is a JSON
// string, otherwise the raw JSON.
func (e ErrorResponse) Message() string {
	var s string
	if err := json.Unmarshal(e.Params, &s); err == nil {
		return s
	}
	return string(e.Params)
}

// Connect endpoints.

type PublicConnectRequest struct{}

type PublicConnectResponse struct{}

type AuthorizedConnectRequest struct {
	AccessToken string `json:"accessToken"`
}

// AccessTokenValue returns the presented access token.
func (r AuthorizedConnectRequest) AccessTokenValue() string { return r.AccessToken }

type AuthorizedConnectResponse struct{}

type APIKeyConnectRequest struct {
	AppPublicID uuid.UUID `json:"appPublicId"`
	AppAPIKey   string    `json:"appApiKey"`
}

// APIKeyValue returns the presented API key.
func (r APIKeyConnectRequest) APIKeyValue() string { return r.AppAPIKey }

type APIKeyConnectResponse struct{}

// Auth flow.

type StartAuthRequest struct {
	AppPublicID uuid.UUID `json:"appPublicId"`
}

type StartAuthResponse struct {
	LoginConfig string `json:"loginConfig"`
}

type SubmitUsernameRequest struct {
	AppPublicID uuid.UUID `json:"appPublicId"`
	Username    string    `json:"username"`
}

type SubmitUsernameResponse struct {
	ExpiresAt int64 `json:"expiresAt"`
}

type SubmitPasswordRequest struct {
	Password string `json:"password"`
}

// TokenSet is the token bundle returned by login, signup and refresh.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int32  `json:"expiresIn"`
}

type SubmitPasswordResponse struct {
	TokenSet
}

type SignupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	AgreedTos     string `json:"agreedTos"`
	AgreedPrivacy string `json:"agreedPrivacy"`
}

type SignupResponse struct {
	TokenSet
	ProfileCallbackURL string `json:"profileCallbackUrl"`
}

type RefreshTokenExchangeRequest struct {
	RefreshToken string    `json:"refreshToken"`
	AppPublicID  uuid.UUID `json:"appPublicId"`
}

type RefreshTokenExchangeResponse struct {
	TokenSet
}

type TokenRevokeRequest struct {
	Token         string    `json:"token"`
	TokenTypeHint *string   `json:"tokenTypeHint,omitempty"`
	AppPublicID   uuid.UUID `json:"appPublicId"`
	ClientSecret  *string   `json:"clientSecret,omitempty"`
}

type TokenRevokeResponse struct {
	Success bool `json:"success"`
}

type TokenIntrospectRequest struct {
	Token         string    `json:"token"`
	TokenTypeHint *string   `json:"tokenTypeHint,omitempty"`
	AppPublicID   uuid.UUID `json:"appPublicId"`
	AppAPIKey     string    `json:"appApiKey"`
}

type TokenIntrospectResponse struct {
	Active       bool       `json:"active"`
	Scope        *string    `json:"scope,omitempty"`
	AppPublicID  *uuid.UUID `json:"appPublicId,omitempty"`
	Username     *string    `json:"username,omitempty"`
	UserPublicID *int64     `json:"userPublicId,omitempty"`
	Exp          *int64     `json:"exp,omitempty"`
	Iat          *int64     `json:"iat,omitempty"`
}

// Callbacks pushed by the identity service to apps.

type ReceiveTokenRequest struct {
	UserPubID int64  `json:"userPubId"`
	Username  string `json:"username"`
	Token     string `json:"token"`
}

type ReceiveTokenResponse struct{}

type ReceiveUserInfoRequest struct {
	UserPubID int64      `json:"userPubId"`
	Username  string     `json:"username"`
	AppPubID  *uuid.UUID `json:"appPubId,omitempty"`
	Token     *string    `json:"token,omitempty"`
}

type ReceiveUserInfoResponse struct{}
