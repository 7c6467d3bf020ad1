package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
	"github.com/jonwraymond/honeyid/wsrpc"
)

// UserInfo is the profile the identity service pushes for a user.
type UserInfo struct {
	UserPublicID tokenstore.UserPublicID
	Username     string
	AppPublicID  *uuid.UUID
}

// UserStore persists users pushed by the identity service.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - UpsertUser creates the user or updates the stored profile.
type UserStore interface {
	UpsertUser(ctx context.Context, info UserInfo) error
}

// ReceiveToken serves protocol.EndpointReceiveToken: the identity service
// pushes a token it issued for a user.
//
// The user is upserted first. A token that fails to parse or insert fails
// the whole call and the upsert is not rolled back; the identity service
// retries the callback.
type ReceiveToken struct {
	users  UserStore
	tokens tokenstore.Store
	logger observe.Logger
}

// NewReceiveToken returns a ReceiveToken writing to users and tokens.
func NewReceiveToken(users UserStore, tokens tokenstore.Store, opts ...HandlerOption) *ReceiveToken {
	o := applyOptions(opts)
	return &ReceiveToken{users: users, tokens: tokens, logger: o.logger}
}

// ServeRPC implements wsrpc.Handler.
func (h *ReceiveToken) ServeRPC(ctx context.Context, _ *wsrpc.Conn, params json.RawMessage) (any, error) {
	var req protocol.ReceiveTokenRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badRequest(err)
	}
	return h.Receive(ctx, req)
}

// Receive stores the pushed user and token.
func (h *ReceiveToken) Receive(ctx context.Context, req protocol.ReceiveTokenRequest) (protocol.ReceiveTokenResponse, error) {
	owner := tokenstore.UserPublicID(req.UserPubID)
	if err := upsertUser(ctx, h.users, UserInfo{UserPublicID: owner, Username: req.Username}); err != nil {
		return protocol.ReceiveTokenResponse{}, err
	}
	if err := storeToken(ctx, h.tokens, owner, req.Token); err != nil {
		h.logger.Warn(ctx, "receive token failed",
			observe.F("user_pub_id", owner.String()),
			observe.F("error", err),
		)
		return protocol.ReceiveTokenResponse{}, err
	}
	h.logger.Debug(ctx, "token received", observe.F("user_pub_id", owner.String()))
	return protocol.ReceiveTokenResponse{}, nil
}

// ReceiveUserInfo serves protocol.EndpointReceiveUserInfo: the identity
// service pushes a user's profile and, optionally, a token. Failure
// semantics match ReceiveToken.
type ReceiveUserInfo struct {
	users  UserStore
	tokens tokenstore.Store
	logger observe.Logger
}

// NewReceiveUserInfo returns a ReceiveUserInfo writing to users and tokens.
func NewReceiveUserInfo(users UserStore, tokens tokenstore.Store, opts ...HandlerOption) *ReceiveUserInfo {
	o := applyOptions(opts)
	return &ReceiveUserInfo{users: users, tokens: tokens, logger: o.logger}
}

// ServeRPC implements wsrpc.Handler.
func (h *ReceiveUserInfo) ServeRPC(ctx context.Context, _ *wsrpc.Conn, params json.RawMessage) (any, error) {
	var req protocol.ReceiveUserInfoRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, badRequest(err)
	}
	return h.Receive(ctx, req)
}

// Receive stores the pushed profile and the token when present.
func (h *ReceiveUserInfo) Receive(ctx context.Context, req protocol.ReceiveUserInfoRequest) (protocol.ReceiveUserInfoResponse, error) {
	owner := tokenstore.UserPublicID(req.UserPubID)
	info := UserInfo{UserPublicID: owner, Username: req.Username, AppPublicID: req.AppPubID}
	if err := upsertUser(ctx, h.users, info); err != nil {
		return protocol.ReceiveUserInfoResponse{}, err
	}
	if req.Token == nil {
		return protocol.ReceiveUserInfoResponse{}, nil
	}
	if err := storeToken(ctx, h.tokens, owner, *req.Token); err != nil {
		h.logger.Warn(ctx, "receive user info failed",
			observe.F("user_pub_id", owner.String()),
			observe.F("error", err),
		)
		return protocol.ReceiveUserInfoResponse{}, err
	}
	return protocol.ReceiveUserInfoResponse{}, nil
}

func upsertUser(ctx context.Context, users UserStore, info UserInfo) error {
	if users == nil {
		return ErrNoUserStore
	}
	if err := users.UpsertUser(ctx, info); err != nil {
		return fmt.Errorf("auth: upsert user %s: %w", info.UserPublicID, err)
	}
	return nil
}

func storeToken(ctx context.Context, tokens tokenstore.Store, owner tokenstore.UserPublicID, raw string) error {
	token, err := tokenstore.ParseAccessToken(raw)
	if err != nil {
		return &BadRequestError{Reason: "`token` is not a valid UUID", Err: err}
	}
	if err := tokens.Insert(ctx, owner, token); err != nil {
		return fmt.Errorf("auth: store token for user %s: %w", owner, err)
	}
	return nil
}

var (
	_ wsrpc.Handler = (*ReceiveToken)(nil)
	_ wsrpc.Handler = (*ReceiveUserInfo)(nil)
)
