package wsrpc

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/honeyid/protocol"
)

var (
	// ErrTransport indicates the WebSocket handshake or TLS setup failed.
	ErrTransport = errors.New("wsrpc: transport failure")

	// ErrStreamClosed indicates the stream ended or errored. It is fatal for
	// the connection and never retried.
	ErrStreamClosed = errors.New("wsrpc: stream closed")

	// ErrMalformedResponse indicates a frame matched neither the success nor
	// the failure shape.
	ErrMalformedResponse = errors.New("wsrpc: malformed response")

	// ErrDuplicateEndpoint indicates a method was registered twice.
	ErrDuplicateEndpoint = errors.New("wsrpc: endpoint already registered")

	// ErrNotConnectEndpoint indicates HandleConnect got an endpoint that does
	// not establish roles.
	ErrNotConnectEndpoint = errors.New("wsrpc: not a connect endpoint")
)

// TransportError reports a failed dial.
type TransportError struct {
	Addr   string
	Status int // HTTP status of a rejected upgrade, 0 if none
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wsrpc: dial %s: status %d: %v", e.Addr, e.Status, e.Err)
	}
	return fmt.Sprintf("wsrpc: dial %s: %v", e.Addr, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// ProtocolError is a failure frame returned by the remote side.
type ProtocolError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wsrpc: remote error %d (%s): %s", uint32(e.Code), e.Code, e.Message)
}

// ErrorCode returns the wire code.
func (e *ProtocolError) ErrorCode() protocol.ErrorCode { return e.Code }

// PublicMessage returns the wire message.
func (e *ProtocolError) PublicMessage() string { return e.Message }

// MalformedResponseError carries the raw frame that could not be decoded.
type MalformedResponseError struct {
	Raw []byte
	Err error
}

func (e *MalformedResponseError) Error() string {
	raw := e.Raw
	if len(raw) > 256 {
		raw = raw[:256]
	}
	if e.Err != nil {
		return fmt.Sprintf("wsrpc: malformed response: %v: %s", e.Err, raw)
	}
	return fmt.Sprintf("wsrpc: malformed response: %s", raw)
}

func (e *MalformedResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedResponse}
	}
	return []error{ErrMalformedResponse, e.Err}
}

// Coder is implemented by errors that map to a wire error code.
type Coder interface {
	ErrorCode() protocol.ErrorCode
}

// PublicMessager is implemented by errors whose wire message differs from
// Error().
type PublicMessager interface {
	PublicMessage() string
}

// ErrorCodeOf maps err to the code written on the wire. Errors without a
// code map to InternalError.
func ErrorCodeOf(err error) protocol.ErrorCode {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return protocol.ErrorCodeInternalError
}

// ErrorMessageOf returns the message written on the wire for err. Errors
// without a public message are reported as "Internal error" so internal
// detail stays in the logs.
func ErrorMessageOf(err error) string {
	var m PublicMessager
	if errors.As(err, &m) {
		return m.PublicMessage()
	}
	return "Internal error"
}

func badRequest(format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: protocol.ErrorCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}
