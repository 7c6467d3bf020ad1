package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/resilience"
)

const (
	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	defaultPingPeriod = (defaultPongWait * 9) / 10
)

// ConnectHandler authorizes a connection and assigns its roles.
//
// Contract:
//   - Concurrency: ServeConnect may be called concurrently for different
//     connections.
//   - Errors: on failure the handler must leave the connection's roles
//     untouched.
type ConnectHandler interface {
	ServeConnect(ctx context.Context, conn *Conn, params json.RawMessage) (any, error)
}

// ConnectHandlerFunc adapts a function to ConnectHandler.
type ConnectHandlerFunc func(ctx context.Context, conn *Conn, params json.RawMessage) (any, error)

// ServeConnect calls f.
func (f ConnectHandlerFunc) ServeConnect(ctx context.Context, conn *Conn, params json.RawMessage) (any, error) {
	return f(ctx, conn, params)
}

// Handler serves a role-gated method.
type Handler interface {
	ServeRPC(ctx context.Context, conn *Conn, params json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, conn *Conn, params json.RawMessage) (any, error)

// ServeRPC calls f.
func (f HandlerFunc) ServeRPC(ctx context.Context, conn *Conn, params json.RawMessage) (any, error) {
	return f(ctx, conn, params)
}

type connectRoute struct {
	endpoint protocol.Endpoint
	handler  ConnectHandler
}

type route struct {
	endpoint protocol.Endpoint
	handler  Handler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMiddleware instruments every dispatch.
func WithMiddleware(mw *observe.Middleware) ServerOption {
	return func(s *Server) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// WithCheckOrigin sets the upgrader's origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithKeepalive sets the ping period and the pong deadline.
func WithKeepalive(pingPeriod, pongWait time.Duration) ServerOption {
	return func(s *Server) {
		if pingPeriod > 0 && pongWait > pingPeriod {
			s.pingPeriod = pingPeriod
			s.pongWait = pongWait
		}
	}
}

// WithMaxMessageSize limits inbound frame size.
func WithMaxMessageSize(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithMaxConnections caps concurrently served connections. Upgrades beyond
// the cap get 503 Service Unavailable.
func WithMaxConnections(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.limit = resilience.NewBulkhead(n, 0)
		}
	}
}

// Server accepts App-side connections and dispatches requests by role.
//
// Contract:
//   - Concurrency: registration must finish before serving; ServeHTTP is
//     safe for concurrent use.
//   - Ordering: each connection is served by one goroutine, strictly one
//     request at a time.
type Server struct {
	upgrader   websocket.Upgrader
	mw         *observe.Middleware
	pingPeriod time.Duration
	pongWait   time.Duration
	readLimit  int64
	limit      *resilience.Bulkhead

	mu       sync.RWMutex
	connects map[protocol.Method]connectRoute
	routes   map[protocol.Method]route
	conns    map[string]*Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a Server with no endpoints registered.
func NewServer(opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mw:         observe.NopMiddleware(),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		readLimit:  defaultReadLimit,
		connects:   make(map[protocol.Method]connectRoute),
		routes:     make(map[protocol.Method]route),
		conns:      make(map[string]*Conn),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleConnect registers a connect endpoint. Connect endpoints are callable
// regardless of the connection's current roles.
func (s *Server) HandleConnect(e protocol.Endpoint, h ConnectHandler) error {
	if !e.Connect {
		return fmt.Errorf("%w: %s", ErrNotConnectEndpoint, e.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered(e.Method) {
		return fmt.Errorf("%w: method %d (%s)", ErrDuplicateEndpoint, e.Method, e.Name)
	}
	s.connects[e.Method] = connectRoute{endpoint: e, handler: h}
	return nil
}

// Handle registers a role-gated endpoint.
func (s *Server) Handle(e protocol.Endpoint, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered(e.Method) {
		return fmt.Errorf("%w: method %d (%s)", ErrDuplicateEndpoint, e.Method, e.Name)
	}
	s.routes[e.Method] = route{endpoint: e, handler: h}
	return nil
}

func (s *Server) registered(m protocol.Method) bool {
	_, c := s.connects[m]
	_, r := s.routes[m]
	return c || r
}

func (s *Server) connectByName(lower string) (connectRoute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.connects {
		if rt.endpoint.LowerName() == lower {
			return rt, true
		}
	}
	return connectRoute{}, false
}

// Len returns the number of open connections.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.limit != nil {
		if err := s.limit.Acquire(r.Context()); err != nil {
			s.mw.Logger().Warn(r.Context(), "connection rejected", observe.F("error", err), observe.F("remote_addr", r.RemoteAddr))
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}
		defer s.limit.Release()
	}

	var (
		pre    *connectRoute
		header http.Header
	)
	for _, p := range websocket.Subprotocols(r) {
		_, name, err := protocol.ParseSubprotocol(p)
		if err != nil {
			continue
		}
		if rt, ok := s.connectByName(name); ok {
			pre = &rt
			header = http.Header{"Sec-Websocket-Protocol": {p}}
			break
		}
	}

	ws, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.mw.Logger().Warn(r.Context(), "websocket upgrade failed", observe.F("error", err), observe.F("remote_addr", r.RemoteAddr))
		return
	}

	conn := newConn(ws, r.RemoteAddr)
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	s.serveConn(s.ctx, conn, pre)
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[c.id] = c
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveConn(ctx context.Context, c *Conn, pre *connectRoute) {
	defer func() { _ = c.Close() }()

	logger := s.mw.Logger()
	c.ws.SetReadLimit(s.readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	go s.keepalive(ctx, c)

	if pre != nil {
		frame, err := s.runConnect(ctx, c, *pre, json.RawMessage("{}"))
		if werr := c.writeFrame(frame); werr != nil {
			return
		}
		if err != nil {
			return
		}
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(ctx, "websocket read error", observe.F("conn", c.id), observe.F("error", err))
			}
			return
		}

		frame := s.dispatch(ctx, c, data)
		if err := c.writeFrame(frame); err != nil {
			logger.Debug(ctx, "websocket write error", observe.F("conn", c.id), observe.F("error", err))
			return
		}
	}
}

func (s *Server) keepalive(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// dispatch handles one inbound frame and returns the frame to write back.
func (s *Server) dispatch(ctx context.Context, c *Conn, data []byte) any {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorFrame(badRequest("Invalid request: %v", err))
	}
	params := req.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	s.mu.RLock()
	crt, isConnect := s.connects[req.Method]
	rt, isRoute := s.routes[req.Method]
	s.mu.RUnlock()

	switch {
	case isConnect:
		frame, _ := s.runConnect(ctx, c, crt, params)
		return frame
	case !isRoute:
		s.mw.Logger().Debug(ctx, "unknown method", observe.F("conn", c.id), observe.F("method", req.Method))
		return errorFrame(&ProtocolError{
			Code:    protocol.ErrorCodeNotFound,
			Message: fmt.Sprintf("Method not found: %d", req.Method),
		})
	case !rt.endpoint.Allows(c.Roles()):
		s.mw.Logger().Info(ctx, "method forbidden for connection roles",
			observe.F("conn", c.id), observe.F("endpoint", rt.endpoint.Name), observe.F("roles", c.Roles()))
		return errorFrame(&ProtocolError{
			Code:    protocol.ErrorCodeForbidden,
			Message: fmt.Sprintf("Forbidden: %s", rt.endpoint.Name),
		})
	}

	res, err := s.mw.Call(ctx, metaOf(rt.endpoint), func(ctx context.Context) (any, error) {
		return rt.handler.ServeRPC(ctx, c, params)
	})
	if err != nil {
		return errorFrame(err)
	}
	return resultFrame(res)
}

func (s *Server) runConnect(ctx context.Context, c *Conn, rt connectRoute, params json.RawMessage) (any, error) {
	res, err := s.mw.Call(ctx, metaOf(rt.endpoint), func(ctx context.Context) (any, error) {
		return rt.handler.ServeConnect(ctx, c, params)
	})
	if err != nil {
		return errorFrame(err), err
	}
	return resultFrame(res), nil
}

func metaOf(e protocol.Endpoint) observe.EndpointMeta {
	return observe.EndpointMeta{Method: uint32(e.Method), Name: e.Name, Side: observe.SideServer}
}

func resultFrame(res any) any {
	raw, err := json.Marshal(res)
	if err != nil {
		return errorFrame(fmt.Errorf("wsrpc: encode result: %w", err))
	}
	return protocol.Response{Params: raw}
}

func errorFrame(err error) protocol.ErrorResponse {
	msg, _ := json.Marshal(ErrorMessageOf(err))
	return protocol.ErrorResponse{Code: ErrorCodeOf(err), Params: msg}
}

// Close closes every open connection and waits for their goroutines.
// Later upgrades are rejected.
func (s *Server) Close() error {
	s.mu.Lock()
	s.cancel()
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	s.wg.Wait()
	return nil
}
