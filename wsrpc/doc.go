// Package wsrpc frames honey.id RPC requests and responses over a WebSocket.
//
// Every frame is one JSON text message. Requests carry a numeric method and
// a params payload:
//
//	{"method": 12, "params": {"appPublicId": "...", "username": "alice"}}
//
// Successful responses carry only params. Failures carry a numeric code and
// a message:
//
//	{"params": {"expiresAt": 1234}}
//	{"code": 100401, "params": "Wrong `accessToken`"}
//
// The client side (Dial, Call, SendRequest, ReceiveResponse) keeps exactly
// one request outstanding per connection. The server side (Server, Conn)
// binds roles to each connection through connect handlers and rejects
// requests whose endpoint roles do not intersect the connection's roles.
//
// Retries and timeouts are not built in; wrap calls with the resilience
// package when needed.
package wsrpc
