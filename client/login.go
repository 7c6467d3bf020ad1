package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// Session is the outcome of a successful Login.
type Session struct {
	UserPublicID tokenstore.UserPublicID
	Username     string
	AccessToken  tokenstore.AccessToken
	Tokens       protocol.TokenSet
	Claims       *auth.IDTokenClaims
}

// SignIn runs SubmitUsername and SubmitPassword on one public connection and
// returns the password response. The first failure is returned as is. The
// connection is closed on return.
func (c *Client) SignIn(ctx context.Context, username, password string) (*protocol.SubmitPasswordResponse, error) {
	conn, err := c.ConnectPublic(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if _, err := c.SubmitUsername(ctx, conn, username); err != nil {
		return nil, err
	}

	pctx := ctx
	if c.usernameTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, c.usernameTimeout)
		defer cancel()
	}

	res, err := c.SubmitPassword(pctx, conn, password)
	if err != nil {
		if c.usernameTimeout > 0 && ctx.Err() == nil && errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrSessionExpired, c.usernameTimeout, err)
		}
		return nil, err
	}
	return res, nil
}

// Login signs the user in and records the issued access token against the
// user public id carried by the id token. A token that cannot be recorded
// fails the login.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	res, err := c.SignIn(ctx, username, password)
	if err != nil {
		return nil, err
	}

	claims, err := c.idTokens.Parse(ctx, res.IDToken)
	if err != nil {
		return nil, fmt.Errorf("client: read id token: %w", err)
	}
	token, err := tokenstore.ParseAccessToken(res.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("client: read access token: %w", err)
	}

	if c.users != nil {
		appID := c.cfg.AppPublicID
		info := auth.UserInfo{UserPublicID: claims.UserPublicID, Username: username, AppPublicID: &appID}
		if err := c.users.UpsertUser(ctx, info); err != nil {
			return nil, fmt.Errorf("client: upsert user %s: %w", claims.UserPublicID, err)
		}
	}
	if err := c.tokens.Insert(ctx, claims.UserPublicID, token); err != nil {
		return nil, fmt.Errorf("client: store token for user %s: %w", claims.UserPublicID, err)
	}

	c.logger.Info(ctx, "user signed in", observe.F("user_public_id", claims.UserPublicID.String()))
	return &Session{
		UserPublicID: claims.UserPublicID,
		Username:     username,
		AccessToken:  token,
		Tokens:       res.TokenSet,
		Claims:       claims,
	}, nil
}
