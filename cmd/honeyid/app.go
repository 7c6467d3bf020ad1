package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/config"
	"github.com/jonwraymond/honeyid/health"
	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
	"github.com/jonwraymond/honeyid/userstore"
	"github.com/jonwraymond/honeyid/wsrpc"
)

// WebSocket path served by the App.
const wsPath = "/ws"

// appOptions are serve flags that are not part of config.Config.
type appOptions struct {
	maxConnections int
	checkIdentity  bool
}

// app is the reference App server: WebSocket authorization plus probes.
type app struct {
	cfg    *config.Config
	obs    observe.Observer
	logger observe.Logger
	tokens *tokenstore.MemoryStore
	users  userstore.Store
	roles  auth.RoleLookup
	server *wsrpc.Server
	health *health.Aggregator
	mux    *http.ServeMux
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
		}
	}()

	if a.obs, err = observe.NewObserver(ctx, cfg.Observe); err != nil {
		return nil, fmt.Errorf("honeyid: observer: %w", err)
	}
	a.logger = a.obs.Logger()
	mw, err := observe.MiddlewareFromObserver(a.obs)
	if err != nil {
		return nil, fmt.Errorf("honeyid: middleware: %w", err)
	}

	a.tokens = tokenstore.NewMemoryStore(tokenstore.WithMeter(a.obs.Meter()))
	if a.users, err = openUsers(ctx, cfg.Users); err != nil {
		return nil, err
	}
	a.roles = a.users
	if cfg.Users.RoleCacheTTL > 0 {
		a.roles = auth.NewCachedRoleLookup(a.users, cfg.Users.RoleCacheTTL)
	}

	sopts := []wsrpc.ServerOption{wsrpc.WithMiddleware(mw), wsrpc.WithMaxMessageSize(cfg.MaxFrameBytes)}
	if opts.maxConnections > 0 {
		sopts = append(sopts, wsrpc.WithMaxConnections(opts.maxConnections))
	}
	a.server = wsrpc.NewServer(sopts...)
	if err := a.register(); err != nil {
		return nil, err
	}

	a.health = health.NewAggregator()
	a.health.Register(health.NewTokenStoreCheck("tokens", a.tokens))
	a.health.Register(health.NewServerCheck("app_server", a.server, opts.maxConnections))
	if p, ok := a.users.(health.Pinger); ok {
		a.health.Register(health.NewPingCheck("users", p))
	}
	if opts.checkIdentity {
		a.health.Register(health.NewDialCheck("identity_service", cfg.Addr,
			wsrpc.WithReadLimit(cfg.MaxFrameBytes), wsrpc.WithHeader(userAgentHeader())))
	}

	a.mux = http.NewServeMux()
	a.mux.Handle(wsPath, a.server)
	health.RegisterHandlers(a.mux, a.health)
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		a.mux.Handle("/metrics", promhttp.Handler())
	}
	return a, nil
}

func openUsers(ctx context.Context, uc config.UsersConfig) (userstore.Store, error) {
	roles, err := uc.Roles()
	if err != nil {
		return nil, err
	}
	opts := []userstore.Option{userstore.WithDefaultRoles(roles...)}
	switch uc.Backend {
	case "redis":
		s, err := userstore.NewRedis(ctx, userstore.RedisConfig{
			Addr:      uc.RedisAddr,
			Password:  uc.RedisPassword.Reveal(),
			KeyPrefix: uc.KeyPrefix,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("honeyid: user store: %w", err)
		}
		return s, nil
	default:
		return userstore.NewMemory(opts...), nil
	}
}

// register mounts the honey.id App endpoints.
func (a *app) register() error {
	hopts := []auth.HandlerOption{auth.WithLogger(a.logger)}
	validator := auth.NewAPIKeyValidator(a.cfg.AuthAPIKey)
	if !validator.Configured() {
		a.logger.Warn(context.Background(), "auth api key not configured; ApiKeyConnect will reject every key")
	} else {
		a.logger.Info(context.Background(), "auth api key configured", observe.F("fingerprint", validator.Fingerprint()))
	}
	return errors.Join(
		a.server.HandleConnect(protocol.EndpointPublicConnect, auth.MethodPublicConnect(hopts...)),
		a.server.HandleConnect(protocol.EndpointAuthorizedConnect, auth.MethodAuthorizedConnect(a.tokens, a.roles, hopts...)),
		a.server.HandleConnect(protocol.EndpointAPIKeyConnect, auth.MethodAPIKeyConnect(validator, hopts...)),
		a.server.Handle(protocol.EndpointReceiveToken, auth.NewReceiveToken(a.users, a.tokens, hopts...)),
		a.server.Handle(protocol.EndpointReceiveUserInfo, auth.NewReceiveUserInfo(a.users, a.tokens, hopts...)),
	)
}

func (a *app) Handler() http.Handler { return a.mux }

// Close drops every connection, then releases the user store and flushes
// telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Close())
	}
	if c, ok := a.users.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
