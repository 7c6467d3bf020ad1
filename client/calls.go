package client

import (
	"context"

	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/resilience"
	"github.com/jonwraymond/honeyid/wsrpc"
)

func meta(e protocol.Endpoint) observe.EndpointMeta {
	return observe.EndpointMeta{Method: uint32(e.Method), Name: e.Name, Side: observe.SideClient}
}

// call runs one exchange on conn under the call timeout and the middleware.
func call[Req, Res any](ctx context.Context, c *Client, conn *wsrpc.ClientConn, e protocol.Endpoint, req Req) (*Res, error) {
	out, err := c.mw.Call(ctx, meta(e), func(ctx context.Context) (any, error) {
		return resilience.Run(ctx, c.callPolicy, func(ctx context.Context) (Res, error) {
			return wsrpc.Call[Req, Res](ctx, conn, e.Method, req)
		})
	})
	if err != nil {
		return nil, err
	}
	res := out.(Res)
	return &res, nil
}

// ConnectPublic opens a connection holding the public role. The
// sub-protocol header selects PublicConnect, so when the service accepts it
// the first frame is the connect response and is consumed here.
func (c *Client) ConnectPublic(ctx context.Context) (*wsrpc.ClientConn, error) {
	sub := protocol.Subprotocol(protocol.RolePublic, protocol.EndpointPublicConnect)
	out, err := c.mw.Call(ctx, meta(protocol.EndpointPublicConnect), func(ctx context.Context) (any, error) {
		conn, err := c.dial(ctx, sub)
		if err != nil {
			return nil, err
		}
		if conn.Subprotocol() != sub {
			return conn, nil
		}
		if _, err := resilience.Run(ctx, c.ackPolicy, func(ctx context.Context) (protocol.PublicConnectResponse, error) {
			return wsrpc.ReceiveResponse[protocol.PublicConnectResponse](ctx, conn)
		}); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*wsrpc.ClientConn), nil
}

// ConnectAPIKey opens a connection authenticated as this App with its API
// key.
func (c *Client) ConnectAPIKey(ctx context.Context) (*wsrpc.ClientConn, error) {
	if !c.cfg.AppAPIKey.IsSet() {
		return nil, ErrAPIKeyNotConfigured
	}
	conn, err := c.dial(ctx, "")
	if err != nil {
		return nil, err
	}
	_, err = call[protocol.APIKeyConnectRequest, protocol.APIKeyConnectResponse](ctx, c, conn, protocol.EndpointAPIKeyConnect,
		protocol.APIKeyConnectRequest{AppPublicID: c.cfg.AppPublicID, AppAPIKey: c.cfg.AppAPIKey.Reveal()})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// StartAuth asks the service for this App's login configuration.
func (c *Client) StartAuth(ctx context.Context, conn *wsrpc.ClientConn) (*protocol.StartAuthResponse, error) {
	return call[protocol.StartAuthRequest, protocol.StartAuthResponse](ctx, c, conn, protocol.EndpointStartAuth,
		protocol.StartAuthRequest{AppPublicID: c.cfg.AppPublicID})
}

// SubmitUsername starts a sign-in for username.
func (c *Client) SubmitUsername(ctx context.Context, conn *wsrpc.ClientConn, username string) (*protocol.SubmitUsernameResponse, error) {
	return call[protocol.SubmitUsernameRequest, protocol.SubmitUsernameResponse](ctx, c, conn, protocol.EndpointSubmitUsername,
		protocol.SubmitUsernameRequest{AppPublicID: c.cfg.AppPublicID, Username: username})
}

// SubmitPassword completes a sign-in started on the same connection. Called
// out of order, the service's own error is returned.
func (c *Client) SubmitPassword(ctx context.Context, conn *wsrpc.ClientConn, password string) (*protocol.SubmitPasswordResponse, error) {
	return call[protocol.SubmitPasswordRequest, protocol.SubmitPasswordResponse](ctx, c, conn, protocol.EndpointSubmitPassword,
		protocol.SubmitPasswordRequest{Password: password})
}

// Signup registers a new user.
func (c *Client) Signup(ctx context.Context, conn *wsrpc.ClientConn, req protocol.SignupRequest) (*protocol.SignupResponse, error) {
	return call[protocol.SignupRequest, protocol.SignupResponse](ctx, c, conn, protocol.EndpointSignup, req)
}

// RefreshTokenExchange trades a refresh token for a new token set.
func (c *Client) RefreshTokenExchange(ctx context.Context, conn *wsrpc.ClientConn, refreshToken string) (*protocol.RefreshTokenExchangeResponse, error) {
	return call[protocol.RefreshTokenExchangeRequest, protocol.RefreshTokenExchangeResponse](ctx, c, conn, protocol.EndpointRefreshTokenExchange,
		protocol.RefreshTokenExchangeRequest{RefreshToken: refreshToken, AppPublicID: c.cfg.AppPublicID})
}

// TokenRevoke revokes token. hint may be empty.
func (c *Client) TokenRevoke(ctx context.Context, conn *wsrpc.ClientConn, token, hint string) (*protocol.TokenRevokeResponse, error) {
	req := protocol.TokenRevokeRequest{Token: token, AppPublicID: c.cfg.AppPublicID}
	if hint != "" {
		req.TokenTypeHint = &hint
	}
	return call[protocol.TokenRevokeRequest, protocol.TokenRevokeResponse](ctx, c, conn, protocol.EndpointTokenRevoke, req)
}

// TokenIntrospect reports whether token is active. conn must hold the App
// API key role, see ConnectAPIKey.
func (c *Client) TokenIntrospect(ctx context.Context, conn *wsrpc.ClientConn, token, hint string) (*protocol.TokenIntrospectResponse, error) {
	if !c.cfg.AppAPIKey.IsSet() {
		return nil, ErrAPIKeyNotConfigured
	}
	req := protocol.TokenIntrospectRequest{
		Token:       token,
		AppPublicID: c.cfg.AppPublicID,
		AppAPIKey:   c.cfg.AppAPIKey.Reveal(),
	}
	if hint != "" {
		req.TokenTypeHint = &hint
	}
	return call[protocol.TokenIntrospectRequest, protocol.TokenIntrospectResponse](ctx, c, conn, protocol.EndpointTokenIntrospect, req)
}
