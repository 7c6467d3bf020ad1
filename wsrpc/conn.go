package wsrpc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonwraymond/honeyid/protocol"
)

// Conn is the server side of one accepted connection. It owns the roles
// granted by the connect handler.
//
// Contract:
//   - Concurrency: role accessors are safe for concurrent use.
//   - Ownership: Roles returns a copy; SetRoles copies its input.
type Conn struct {
	id          string
	remoteAddr  string
	subprotocol string
	ws          *websocket.Conn

	mu    sync.RWMutex
	roles []protocol.Role

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, remoteAddr string) *Conn {
	return &Conn{
		id:          uuid.NewString(),
		remoteAddr:  remoteAddr,
		subprotocol: ws.Subprotocol(),
		ws:          ws,
		done:        make(chan struct{}),
	}
}

// ID returns a unique connection id.
func (c *Conn) ID() string { return c.id }

// RemoteAddr returns the peer address of the upgrade request.
func (c *Conn) RemoteAddr() string { return c.remoteAddr }

// Subprotocol returns the negotiated sub-protocol, if any.
func (c *Conn) Subprotocol() string { return c.subprotocol }

// SetRoles replaces the connection's roles. The last write wins.
func (c *Conn) SetRoles(roles []protocol.Role) {
	cp := append([]protocol.Role(nil), roles...)
	c.mu.Lock()
	c.roles = cp
	c.mu.Unlock()
}

// Roles returns a copy of the connection's roles.
func (c *Conn) Roles() []protocol.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]protocol.Role(nil), c.roles...)
}

// HasRole reports whether the connection holds r.
func (c *Conn) HasRole(r protocol.Role) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return protocol.ContainsRole(c.roles, r)
}

// Done is closed when the connection closes.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) writeFrame(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close closes the underlying WebSocket. It is idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
