package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/config"
	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/resilience"
	"github.com/jonwraymond/honeyid/tokenstore"
	"github.com/jonwraymond/honeyid/wsrpc"
)

// DefaultConnectAckTimeout bounds the connect response read when no call
// timeout is configured.
const DefaultConnectAckTimeout = 10 * time.Second

// Client is an App's handle on the identity service.
//
// Contract:
//   - Concurrency: safe for concurrent use. Each SignIn uses its own
//     connection.
//   - Errors: transport faults match wsrpc.ErrTransport, failure frames are
//     *wsrpc.ProtocolError, and a dead stream matches wsrpc.ErrStreamClosed.
type Client struct {
	cfg config.Config

	dialOpts        []wsrpc.DialOption
	retry           *resilience.Retry
	breaker         *resilience.CircuitBreaker
	dialPolicy      resilience.Policy
	callTimeout     time.Duration
	callPolicy      resilience.Policy
	ackTimeout      time.Duration
	ackPolicy       resilience.Policy
	usernameTimeout time.Duration

	logger observe.Logger
	mw     *observe.Middleware

	tokens   tokenstore.Store
	users    auth.UserStore
	idTokens *auth.IDTokenParser
}

// Option configures a Client.
type Option func(*Client)

// WithDialOptions passes options through to wsrpc.Dial.
func WithDialOptions(opts ...wsrpc.DialOption) Option {
	return func(c *Client) { c.dialOpts = append(c.dialOpts, opts...) }
}

// WithRetry retries failed dials. Dial only fails with transport errors, so
// failure frames from the service are never retried.
func WithRetry(r *resilience.Retry) Option {
	return func(c *Client) { c.retry = r }
}

// WithCircuitBreaker stops dialing while the service keeps failing.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithCallTimeout bounds each request/response exchange. It overrides
// config.Config.CallTimeout; zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithConnectAckTimeout bounds the wait for the PublicConnect response the
// service sends after accepting the sub-protocol header. Default: the call
// timeout, or DefaultConnectAckTimeout when that is zero.
func WithConnectAckTimeout(d time.Duration) Option {
	return func(c *Client) { c.ackTimeout = d }
}

// WithUsernameTimeout bounds the gap between SubmitUsername and the
// SubmitPassword response inside SignIn. It overrides
// config.Config.UsernameTimeout; zero disables it.
func WithUsernameTimeout(d time.Duration) Option {
	return func(c *Client) { c.usernameTimeout = d }
}

// WithLogger sets the logger. Without WithMiddleware, calls are also logged
// through it.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMiddleware traces, measures and logs every call.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// WithTokenStore sets where Login records access tokens. Default: a fresh
// tokenstore.MemoryStore.
func WithTokenStore(s tokenstore.Store) Option {
	return func(c *Client) {
		if s != nil {
			c.tokens = s
		}
	}
}

// WithUserStore makes Login upsert the signed-in user before storing the
// token.
func WithUserStore(s auth.UserStore) Option {
	return func(c *Client) { c.users = s }
}

// WithIDTokenParser sets how Login reads the id token. Default: an
// unverified parser reading the "sub" claim.
func WithIDTokenParser(p *auth.IDTokenParser) Option {
	return func(c *Client) {
		if p != nil {
			c.idTokens = p
		}
	}
}

// New creates a Client for cfg. An empty Addr falls back to
// config.DefaultAddr.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if cfg.Addr == "" {
		cfg.Addr = config.DefaultAddr
	}
	cfg.Addr = config.NormalizeAddr(cfg.Addr)
	if cfg.AppPublicID == uuid.Nil {
		return nil, config.ErrMissingAppPublicID
	}

	c := &Client{
		cfg:             cfg,
		dialOpts:        []wsrpc.DialOption{wsrpc.WithReadLimit(cfg.MaxFrameBytes)},
		callTimeout:     cfg.CallTimeout,
		usernameTimeout: cfg.UsernameTimeout,
		logger:          observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.mw == nil {
		c.mw = observe.NewMiddleware(nil, nil, c.logger)
	}
	if c.tokens == nil {
		c.tokens = tokenstore.NewMemoryStore()
	}
	if c.idTokens == nil {
		c.idTokens = auth.NewIDTokenParser(auth.IDTokenConfig{}, nil)
	}
	if c.retry != nil || c.breaker != nil {
		var eopts []resilience.ExecutorOption
		if c.retry != nil {
			eopts = append(eopts, resilience.WithRetry(c.retry))
		}
		if c.breaker != nil {
			eopts = append(eopts, resilience.WithCircuitBreaker(c.breaker))
		}
		c.dialPolicy = resilience.NewExecutor(eopts...)
	}
	if c.callTimeout > 0 {
		c.callPolicy = resilience.NewTimeout(c.callTimeout)
	}
	if c.ackTimeout <= 0 {
		c.ackTimeout = c.callTimeout
	}
	if c.ackTimeout <= 0 {
		c.ackTimeout = DefaultConnectAckTimeout
	}
	c.ackPolicy = resilience.NewTimeout(c.ackTimeout)
	return c, nil
}

// AppPublicID returns the configured App id.
func (c *Client) AppPublicID() uuid.UUID { return c.cfg.AppPublicID }

// Addr returns the identity service address.
func (c *Client) Addr() string { return c.cfg.Addr }

// Tokens returns the store Login writes to.
func (c *Client) Tokens() tokenstore.Store { return c.tokens }

// CircuitBreaker returns the dial breaker, or nil.
func (c *Client) CircuitBreaker() *resilience.CircuitBreaker { return c.breaker }

func (c *Client) dial(ctx context.Context, subprotocol string) (*wsrpc.ClientConn, error) {
	conn, err := resilience.Run(ctx, c.dialPolicy, func(ctx context.Context) (*wsrpc.ClientConn, error) {
		return wsrpc.Dial(ctx, c.cfg.Addr, subprotocol, c.dialOpts...)
	})
	if err != nil {
		c.logger.Warn(ctx, "dial identity service failed",
			observe.F("addr", c.cfg.Addr),
			observe.F("subprotocol", subprotocol),
			observe.F("error", err))
		return nil, err
	}
	return conn, nil
}
