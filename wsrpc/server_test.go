package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/jonwraymond/honeyid/protocol"
)

type connRecorder struct {
	mu    sync.Mutex
	conns []*Conn
}

func (r *connRecorder) add(c *Conn) {
	r.mu.Lock()
	r.conns = append(r.conns, c)
	r.mu.Unlock()
}

func (r *connRecorder) last() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return nil
	}
	return r.conns[len(r.conns)-1]
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *connRecorder) {
	t.Helper()
	rec := &connRecorder{}
	s := NewServer()

	err := s.HandleConnect(protocol.EndpointPublicConnect, ConnectHandlerFunc(func(_ context.Context, c *Conn, _ json.RawMessage) (any, error) {
		c.SetRoles([]protocol.Role{protocol.RolePublic})
		rec.add(c)
		return protocol.PublicConnectResponse{}, nil
	}))
	if err != nil {
		t.Fatalf("HandleConnect() error = %v", err)
	}

	err = s.HandleConnect(protocol.EndpointAuthorizedConnect, ConnectHandlerFunc(func(_ context.Context, c *Conn, params json.RawMessage) (any, error) {
		var req protocol.AuthorizedConnectRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, badRequest("Invalid request: %v", err)
		}
		if req.AccessToken != "good" {
			return nil, &ProtocolError{Code: protocol.ErrorCodeInvalidAccessToken, Message: "Wrong `accessToken`"}
		}
		c.SetRoles([]protocol.Role{protocol.RoleAppNewUser})
		rec.add(c)
		return protocol.AuthorizedConnectResponse{}, nil
	}))
	if err != nil {
		t.Fatalf("HandleConnect() error = %v", err)
	}

	err = s.Handle(protocol.EndpointStartAuth, HandlerFunc(func(context.Context, *Conn, json.RawMessage) (any, error) {
		return protocol.StartAuthResponse{LoginConfig: "cfg"}, nil
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	err = s.Handle(protocol.EndpointReceiveToken, HandlerFunc(func(context.Context, *Conn, json.RawMessage) (any, error) {
		return protocol.ReceiveTokenResponse{}, nil
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	err = s.Handle(protocol.EndpointTokenRevoke, HandlerFunc(func(context.Context, *Conn, json.RawMessage) (any, error) {
		return nil, errors.New("database exploded")
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	hs := httptest.NewServer(s)
	t.Cleanup(func() {
		_ = s.Close()
		hs.Close()
	})
	return s, hs, rec
}

func wantCode(t *testing.T, err error, code protocol.ErrorCode) {
	t.Helper()
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ProtocolError with code %d", err, code)
	}
	if pe.Code != code {
		t.Errorf("Code = %d (%s), want %d (%s)", pe.Code, pe.Code, code, code)
	}
}

func TestServer_SubprotocolPreselectsConnect(t *testing.T) {
	_, hs, rec := newTestServer(t)
	ctx := context.Background()

	header := protocol.Subprotocol(protocol.RolePublic, protocol.EndpointPublicConnect)
	c, err := Dial(ctx, wsURL(hs), header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if got := c.Subprotocol(); got != header {
		t.Errorf("Subprotocol() = %q, want %q", got, header)
	}
	if _, err := ReceiveResponse[protocol.PublicConnectResponse](ctx, c); err != nil {
		t.Fatalf("connect response error = %v", err)
	}

	res, err := Call[protocol.StartAuthRequest, protocol.StartAuthResponse](ctx, c, protocol.MethodStartAuth, protocol.StartAuthRequest{})
	if err != nil {
		t.Fatalf("StartAuth error = %v", err)
	}
	if res.LoginConfig != "cfg" {
		t.Errorf("LoginConfig = %q, want %q", res.LoginConfig, "cfg")
	}

	conn := rec.last()
	if conn == nil {
		t.Fatal("connect handler did not run")
	}
	if !conn.HasRole(protocol.RolePublic) {
		t.Errorf("Roles() = %v, want [public]", conn.Roles())
	}
}

func TestServer_Dispatch(t *testing.T) {
	_, hs, _ := newTestServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, wsURL(hs), "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	// No roles yet.
	_, err = Call[protocol.StartAuthRequest, protocol.StartAuthResponse](ctx, c, protocol.MethodStartAuth, protocol.StartAuthRequest{})
	wantCode(t, err, protocol.ErrorCodeForbidden)

	// Failed connect leaves roles unset and the connection open.
	_, err = Call[protocol.AuthorizedConnectRequest, protocol.AuthorizedConnectResponse](ctx, c, protocol.MethodAuthorizedConnect, protocol.AuthorizedConnectRequest{AccessToken: "bad"})
	wantCode(t, err, protocol.ErrorCodeInvalidAccessToken)

	_, err = Call[protocol.StartAuthRequest, protocol.StartAuthResponse](ctx, c, protocol.MethodStartAuth, protocol.StartAuthRequest{})
	wantCode(t, err, protocol.ErrorCodeForbidden)

	// Public connect over a message.
	if _, err := Call[protocol.PublicConnectRequest, protocol.PublicConnectResponse](ctx, c, protocol.MethodPublicConnect, protocol.PublicConnectRequest{}); err != nil {
		t.Fatalf("PublicConnect error = %v", err)
	}
	if _, err := Call[protocol.StartAuthRequest, protocol.StartAuthResponse](ctx, c, protocol.MethodStartAuth, protocol.StartAuthRequest{}); err != nil {
		t.Errorf("StartAuth after connect error = %v", err)
	}

	tests := []struct {
		name   string
		method protocol.Method
		code   protocol.ErrorCode
	}{
		{name: "unknown method", method: 99, code: protocol.ErrorCodeNotFound},
		{name: "role mismatch", method: protocol.MethodReceiveToken, code: protocol.ErrorCodeForbidden},
		{name: "internal error", method: protocol.MethodTokenRevoke, code: protocol.ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Call[struct{}, struct{}](ctx, c, tt.method, struct{}{})
			wantCode(t, err, tt.code)
		})
	}

	// Internal detail never reaches the wire.
	_, err = Call[struct{}, struct{}](ctx, c, protocol.MethodTokenRevoke, struct{}{})
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Message != "Internal error" {
		t.Errorf("Message = %q, want %q", pe.Message, "Internal error")
	}
}

func TestServer_ReconnectReplacesRoles(t *testing.T) {
	_, hs, rec := newTestServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, wsURL(hs), "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	if _, err := Call[protocol.PublicConnectRequest, protocol.PublicConnectResponse](ctx, c, protocol.MethodPublicConnect, protocol.PublicConnectRequest{}); err != nil {
		t.Fatalf("PublicConnect error = %v", err)
	}
	if _, err := Call[protocol.AuthorizedConnectRequest, protocol.AuthorizedConnectResponse](ctx, c, protocol.MethodAuthorizedConnect, protocol.AuthorizedConnectRequest{AccessToken: "good"}); err != nil {
		t.Fatalf("AuthorizedConnect error = %v", err)
	}

	conn := rec.last()
	if conn.HasRole(protocol.RolePublic) {
		t.Errorf("Roles() = %v, want public role replaced", conn.Roles())
	}
	if !conn.HasRole(protocol.RoleAppNewUser) {
		t.Errorf("Roles() = %v, want app_new_user", conn.Roles())
	}
}

func TestServer_BadFrame(t *testing.T) {
	_, hs, _ := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(hs), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	_, err = DecodeResponse[struct{}](data)
	wantCode(t, err, protocol.ErrorCodeBadRequest)
}

func TestServer_Registration(t *testing.T) {
	s := NewServer()
	h := HandlerFunc(func(context.Context, *Conn, json.RawMessage) (any, error) { return nil, nil })
	ch := ConnectHandlerFunc(func(context.Context, *Conn, json.RawMessage) (any, error) { return nil, nil })

	if err := s.Handle(protocol.EndpointReceiveToken, h); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := s.Handle(protocol.EndpointReceiveToken, h); !errors.Is(err, ErrDuplicateEndpoint) {
		t.Errorf("Handle() duplicate error = %v, want ErrDuplicateEndpoint", err)
	}
	if err := s.HandleConnect(protocol.EndpointReceiveUserInfo, ch); !errors.Is(err, ErrNotConnectEndpoint) {
		t.Errorf("HandleConnect() non-connect error = %v, want ErrNotConnectEndpoint", err)
	}
	if err := s.HandleConnect(protocol.EndpointAPIKeyConnect, ch); err != nil {
		t.Errorf("HandleConnect() error = %v", err)
	}
}

func TestServer_CloseDropsConnections(t *testing.T) {
	s, hs, _ := newTestServer(t)
	ctx := context.Background()

	c, err := Dial(ctx, wsURL(hs), protocol.Subprotocol(protocol.RolePublic, protocol.EndpointPublicConnect))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()
	if _, err := ReceiveResponse[protocol.PublicConnectResponse](ctx, c); err != nil {
		t.Fatalf("connect response error = %v", err)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Close = %d, want 0", got)
	}
	if _, err := ReceiveResponse[struct{}](ctx, c); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("ReceiveResponse() after server close = %v, want ErrStreamClosed", err)
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    protocol.ErrorCode
		message string
	}{
		{name: "protocol error", err: &ProtocolError{Code: protocol.ErrorCodeForbidden, Message: "no"}, code: protocol.ErrorCodeForbidden, message: "no"},
		{name: "wrapped protocol error", err: errors.Join(errors.New("ctx"), badRequest("Invalid request: %s", "x")), code: protocol.ErrorCodeBadRequest, message: "Invalid request: x"},
		{name: "plain error", err: errors.New("boom"), code: protocol.ErrorCodeInternalError, message: "Internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCodeOf(tt.err); got != tt.code {
				t.Errorf("ErrorCodeOf() = %d, want %d", got, tt.code)
			}
			if got := ErrorMessageOf(tt.err); got != tt.message {
				t.Errorf("ErrorMessageOf() = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestConn_Roles(t *testing.T) {
	c := &Conn{}
	in := []protocol.Role{protocol.RoleAppAdmin}
	c.SetRoles(in)
	in[0] = protocol.RolePublic

	got := c.Roles()
	if len(got) != 1 || got[0] != protocol.RoleAppAdmin {
		t.Fatalf("Roles() = %v, want [app_admin]", got)
	}
	got[0] = protocol.RolePublic
	if !c.HasRole(protocol.RoleAppAdmin) {
		t.Error("Roles() returned an alias of internal state")
	}
}

func TestServer_MaxConnections(t *testing.T) {
	s := NewServer(WithMaxConnections(1))
	if err := s.HandleConnect(protocol.EndpointPublicConnect, ConnectHandlerFunc(func(_ context.Context, c *Conn, _ json.RawMessage) (any, error) {
		c.SetRoles([]protocol.Role{protocol.RolePublic})
		return protocol.PublicConnectResponse{}, nil
	})); err != nil {
		t.Fatal(err)
	}
	hs := httptest.NewServer(s)
	defer hs.Close()
	defer s.Close()

	ctx := context.Background()
	header := protocol.Subprotocol(protocol.RolePublic, protocol.EndpointPublicConnect)
	first, err := Dial(ctx, wsURL(hs), header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if _, err := ReceiveResponse[protocol.PublicConnectResponse](ctx, first); err != nil {
		t.Fatalf("connect response error = %v", err)
	}

	_, err = Dial(ctx, wsURL(hs), header)
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusServiceUnavailable {
		t.Errorf("second Dial() error = %v, want status 503", err)
	}
	_ = first.Close()
}
