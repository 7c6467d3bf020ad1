package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
	"github.com/jonwraymond/honeyid/wsrpc"
)

// Conn is the connection state a connect handler binds roles to.
// *wsrpc.Conn implements it.
type Conn interface {
	ID() string
	SetRoles(roles []protocol.Role)
	Roles() []protocol.Role
}

// AccessTokenCarrier is a connect request carrying a user access token.
type AccessTokenCarrier interface {
	AccessTokenValue() string
}

// APIKeyCarrier is a connect request carrying a pre-shared API key.
type APIKeyCarrier interface {
	APIKeyValue() string
}

// PublicContext is passed to public connect callbacks.
type PublicContext struct {
	Roles []protocol.Role
	Conn  Conn
}

// ServiceContext is passed to API-key connect callbacks.
type ServiceContext struct {
	Roles []protocol.Role
	Conn  Conn
}

// AuthorizedContext is passed to access-token connect callbacks.
type AuthorizedContext struct {
	UserPublicID tokenstore.UserPublicID
	Roles        []protocol.Role
	Conn         Conn
}

// HandlerOption configures a Handler or a credential callback.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	logger observe.Logger
	roles  []protocol.Role
}

func applyOptions(opts []HandlerOption) handlerOptions {
	o := handlerOptions{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger logs rejected credentials and callback failures to l.
func WithLogger(l observe.Logger) HandlerOption {
	return func(o *handlerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRoles overrides the roles granted by public and API-key handlers.
// Access-token handlers take roles from their RoleLookup and ignore it.
func WithRoles(roles ...protocol.Role) HandlerOption {
	return func(o *handlerOptions) {
		o.roles = cloneRoles(roles)
	}
}

// Handler authorizes a connection and runs an application callback.
//
// Connect decodes params into Req, checks the credential Req carries, binds
// the granted roles to the connection, and returns the callback's Res. A
// failed decode or credential check returns before any role is bound.
// Callback errors are returned unchanged.
type Handler[Req, Res any] struct {
	authn      Authenticator
	credential func(Req) string
	serve      func(ctx context.Context, id *Identity, conn Conn, req Req) (Res, error)
	logger     observe.Logger
}

// NewHandler builds a Handler around any Authenticator. credential extracts
// the value passed to authn; it may be nil for authenticators that ignore
// it.
func NewHandler[Req, Res any](
	authn Authenticator,
	credential func(Req) string,
	serve func(ctx context.Context, id *Identity, conn Conn, req Req) (Res, error),
	opts ...HandlerOption,
) *Handler[Req, Res] {
	o := applyOptions(opts)
	if credential == nil {
		credential = func(Req) string { return "" }
	}
	if serve == nil {
		serve = func(context.Context, *Identity, Conn, Req) (Res, error) {
			var zero Res
			return zero, nil
		}
	}
	return &Handler[Req, Res]{
		authn:      authn,
		credential: credential,
		serve:      serve,
		logger:     o.logger,
	}
}

// NewPublicConnect grants the public roles, [Public] unless WithRoles says
// otherwise, and runs cb.
func NewPublicConnect[Req, Res any](
	cb func(ctx context.Context, c *PublicContext, req Req) (Res, error),
	opts ...HandlerOption,
) *Handler[Req, Res] {
	o := applyOptions(opts)
	var serve func(context.Context, *Identity, Conn, Req) (Res, error)
	if cb != nil {
		serve = func(ctx context.Context, id *Identity, conn Conn, req Req) (Res, error) {
			return cb(ctx, &PublicContext{Roles: id.Roles, Conn: conn}, req)
		}
	}
	return NewHandler(NewPublicAuthenticator(o.roles...), nil, serve, opts...)
}

// NewAPIKeyConnect checks the request's API key with v, grants the service
// roles, [AppAPIKey] unless WithRoles says otherwise, and runs cb.
func NewAPIKeyConnect[Req APIKeyCarrier, Res any](
	v *APIKeyValidator,
	cb func(ctx context.Context, c *ServiceContext, req Req) (Res, error),
	opts ...HandlerOption,
) *Handler[Req, Res] {
	o := applyOptions(opts)
	var serve func(context.Context, *Identity, Conn, Req) (Res, error)
	if cb != nil {
		serve = func(ctx context.Context, id *Identity, conn Conn, req Req) (Res, error) {
			return cb(ctx, &ServiceContext{Roles: id.Roles, Conn: conn}, req)
		}
	}
	return NewHandler(NewAPIKeyAuthenticator(v, o.roles...), func(r Req) string { return r.APIKeyValue() }, serve, opts...)
}

// NewAuthorizedConnect validates the request's access token against tokens,
// grants the owner's roles from roles, and runs cb.
func NewAuthorizedConnect[Req AccessTokenCarrier, Res any](
	tokens tokenstore.Store,
	roles RoleLookup,
	cb func(ctx context.Context, c *AuthorizedContext, req Req) (Res, error),
	opts ...HandlerOption,
) *Handler[Req, Res] {
	var serve func(context.Context, *Identity, Conn, Req) (Res, error)
	if cb != nil {
		serve = func(ctx context.Context, id *Identity, conn Conn, req Req) (Res, error) {
			return cb(ctx, &AuthorizedContext{
				UserPublicID: id.UserPublicID,
				Roles:        id.Roles,
				Conn:         conn,
			}, req)
		}
	}
	return NewHandler(NewAccessTokenAuthenticator(tokens, roles), func(r Req) string { return r.AccessTokenValue() }, serve, opts...)
}

// MethodPublicConnect serves protocol.EndpointPublicConnect with an empty
// response.
func MethodPublicConnect(opts ...HandlerOption) *Handler[protocol.PublicConnectRequest, protocol.PublicConnectResponse] {
	return NewPublicConnect[protocol.PublicConnectRequest, protocol.PublicConnectResponse](nil, opts...)
}

// MethodAPIKeyConnect serves protocol.EndpointAPIKeyConnect with an empty
// response.
func MethodAPIKeyConnect(v *APIKeyValidator, opts ...HandlerOption) *Handler[protocol.APIKeyConnectRequest, protocol.APIKeyConnectResponse] {
	return NewAPIKeyConnect[protocol.APIKeyConnectRequest, protocol.APIKeyConnectResponse](v, nil, opts...)
}

// MethodAuthorizedConnect serves protocol.EndpointAuthorizedConnect with an
// empty response.
func MethodAuthorizedConnect(tokens tokenstore.Store, roles RoleLookup, opts ...HandlerOption) *Handler[protocol.AuthorizedConnectRequest, protocol.AuthorizedConnectResponse] {
	return NewAuthorizedConnect[protocol.AuthorizedConnectRequest, protocol.AuthorizedConnectResponse](tokens, roles, nil, opts...)
}

// Method returns the credential kind the handler checks.
func (h *Handler[Req, Res]) Method() AuthMethod { return h.authn.Method() }

// ServeConnect implements wsrpc.ConnectHandler.
func (h *Handler[Req, Res]) ServeConnect(ctx context.Context, conn *wsrpc.Conn, params json.RawMessage) (any, error) {
	res, err := h.Connect(ctx, conn, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Connect runs the handler against conn.
func (h *Handler[Req, Res]) Connect(ctx context.Context, conn Conn, params json.RawMessage) (Res, error) {
	var zero Res
	var req Req
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, &req); err != nil {
		h.reject(ctx, conn, err)
		return zero, badRequest(err)
	}

	id, err := h.authn.Authenticate(ctx, h.credential(req))
	if err != nil {
		h.reject(ctx, conn, err)
		return zero, err
	}
	id.ConnID = conn.ID()
	conn.SetRoles(id.Roles)

	res, err := h.serve(WithIdentity(ctx, id), id, conn, req)
	if err != nil {
		h.logger.Warn(ctx, "connect callback failed",
			observe.F("auth_method", string(h.authn.Method())),
			observe.F("conn_id", conn.ID()),
			observe.F("error", err),
		)
		return zero, err
	}
	return res, nil
}

func (h *Handler[Req, Res]) reject(ctx context.Context, conn Conn, err error) {
	fields := []observe.Field{
		observe.F("auth_method", string(h.authn.Method())),
		observe.F("conn_id", conn.ID()),
		observe.F("error", err),
	}
	if errors.Is(err, ErrAPIKeyNotConfigured) {
		h.logger.Error(ctx, "connect rejected: auth api key not configured", fields...)
		return
	}
	h.logger.Warn(ctx, "connect rejected", fields...)
}

var _ wsrpc.ConnectHandler = (*Handler[protocol.PublicConnectRequest, protocol.PublicConnectResponse])(nil)
