package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonwraymond/honeyid/protocol"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Default maximum frame size accepted from the peer.
	defaultReadLimit = 1 << 20
)

// DialOption configures Dial.
type DialOption func(*dialOptions)

type dialOptions struct {
	dialer    *websocket.Dialer
	header    http.Header
	readLimit int64
}

// WithDialer replaces the default gorilla dialer, e.g. to set TLS options.
func WithDialer(d *websocket.Dialer) DialOption {
	return func(o *dialOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHeader adds HTTP headers to the upgrade request.
func WithHeader(h http.Header) DialOption {
	return func(o *dialOptions) {
		for k, vs := range h {
			for _, v := range vs {
				o.header.Add(k, v)
			}
		}
	}
}

// WithReadLimit sets the maximum inbound frame size in bytes.
func WithReadLimit(n int64) DialOption {
	return func(o *dialOptions) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// ClientConn is one outbound RPC connection.
//
// Contract:
//   - Concurrency: safe for concurrent use; Call serializes whole exchanges so
//     at most one request is outstanding.
//   - Errors: a stream error closes the connection; later calls return
//     ErrStreamClosed.
type ClientConn struct {
	ws   *websocket.Conn
	addr string

	exchangeMu sync.Mutex // held across a request and its response
	writeMu    sync.Mutex

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Dial opens a connection to addr. When subprotocol is non-empty it is sent
// as the Sec-WebSocket-Protocol header.
func Dial(ctx context.Context, addr, subprotocol string, opts ...DialOption) (*ClientConn, error) {
	o := dialOptions{
		dialer:    websocket.DefaultDialer,
		header:    http.Header{},
		readLimit: defaultReadLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := *o.dialer
	if subprotocol != "" {
		d.Subprotocols = []string{subprotocol}
	}

	ws, resp, err := d.DialContext(ctx, addr, o.header)
	if err != nil {
		te := &TransportError{Addr: addr, Err: err}
		if resp != nil {
			te.Status = resp.StatusCode
			_ = resp.Body.Close()
		}
		return nil, te
	}
	ws.SetReadLimit(o.readLimit)

	return &ClientConn{
		ws:     ws,
		addr:   addr,
		closed: make(chan struct{}),
	}, nil
}

// Subprotocol returns the sub-protocol accepted by the server.
func (c *ClientConn) Subprotocol() string {
	return c.ws.Subprotocol()
}

// Addr returns the dialed address.
func (c *ClientConn) Addr() string {
	return c.addr
}

// SendRequest writes one request frame.
func (c *ClientConn) SendRequest(ctx context.Context, method protocol.Method, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("wsrpc: encode params for method %d: %w", method, err)
	}
	data, err := json.Marshal(protocol.Request{Method: method, Params: raw})
	if err != nil {
		return fmt.Errorf("wsrpc: encode request: %w", err)
	}

	if c.isClosed() {
		return ErrStreamClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if deadline.IsZero() {
		deadline = time.Now().Add(writeWait)
	}
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = c.Close()
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}
	return nil
}

// ReceiveResponse reads exactly one frame and decodes it as T, a failure
// frame, or neither.
func ReceiveResponse[T any](ctx context.Context, c *ClientConn) (T, error) {
	var zero T
	data, err := c.readFrame(ctx)
	if err != nil {
		return zero, err
	}
	return DecodeResponse[T](data)
}

// Call sends req and waits for its response while holding the exchange lock.
func Call[Req, Res any](ctx context.Context, c *ClientConn, method protocol.Method, req Req) (Res, error) {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	var zero Res
	if err := c.SendRequest(ctx, method, req); err != nil {
		return zero, err
	}
	return ReceiveResponse[Res](ctx, c)
}

func (c *ClientConn) readFrame(ctx context.Context) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrStreamClosed
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			_ = c.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrStreamClosed, ctxErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrStreamClosed, err)
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// DecodeResponse decodes one inbound frame. It tries, in order: a success
// frame whose params decode as T, a failure frame carrying a code, and
// finally reports the raw frame as malformed.
func DecodeResponse[T any](data []byte) (T, error) {
	var zero T

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return zero, &MalformedResponseError{Raw: data, Err: err}
	}

	codeRaw, hasCode := fields["code"]
	params, hasParams := fields["params"]

	var decodeErr error
	if !hasCode && hasParams {
		var v T
		if decodeErr = json.Unmarshal(params, &v); decodeErr == nil {
			return v, nil
		}
	}

	if hasCode {
		var code protocol.ErrorCode
		err := json.Unmarshal(codeRaw, &code)
		if err == nil {
			msg := protocol.ErrorResponse{Code: code, Params: params}.Message()
			return zero, &ProtocolError{Code: code, Message: msg}
		}
		decodeErr = err
	}

	if decodeErr == nil {
		decodeErr = errors.New("missing params")
	}
	return zero, &MalformedResponseError{Raw: data, Err: decodeErr}
}

func (c *ClientConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close sends a close frame and releases the connection. It is idempotent.
func (c *ClientConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
