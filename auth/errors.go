package auth

import (
	"errors"

	"github.com/jonwraymond/honeyid/protocol"
)

// Error is an authorization failure with a fixed wire code. Message is safe
// to send to the peer.
type Error struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *Error) Error() string { return "auth: " + e.Message }

// ErrorCode returns the wire code.
func (e *Error) ErrorCode() protocol.ErrorCode { return e.Code }

// PublicMessage returns the message sent to the peer.
func (e *Error) PublicMessage() string { return e.Message }

var (
	// ErrWrongAccessToken is returned for any access token the store does not
	// know. The reason is logged, never sent.
	ErrWrongAccessToken = &Error{Code: protocol.ErrorCodeInvalidAccessToken, Message: "Wrong `accessToken`"}

	// ErrIncorrectAPIKey is returned when a presented API key does not match.
	ErrIncorrectAPIKey = &Error{Code: protocol.ErrorCodeIncorrectAPIKey, Message: "Wrong `authApiKey`"}

	// ErrAPIKeyNotConfigured is returned when no API key is configured to
	// compare against.
	ErrAPIKeyNotConfigured = &Error{
		Code:    protocol.ErrorCodeAPIKeyNotConfigured,
		Message: "authApiKey has not been configured for this App",
	}

	// ErrBadRequest matches every *BadRequestError.
	ErrBadRequest = &Error{Code: protocol.ErrorCodeBadRequest, Message: "Invalid request"}

	// ErrForbidden is returned when a connection lacks the roles a method
	// requires.
	ErrForbidden = &Error{Code: protocol.ErrorCodeForbidden, Message: "Forbidden"}
)

// Token and key errors. These are internal and map to InternalError on the
// wire.
var (
	ErrKeyNotFound    = errors.New("auth: signing key not found")
	ErrJWKSFetch      = errors.New("auth: jwks fetch failed")
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenInvalid   = errors.New("auth: token invalid")
	ErrMissingClaim   = errors.New("auth: missing claim")
	ErrNoUserStore    = errors.New("auth: user store not configured")
)

// BadRequestError reports a request payload that could not be decoded or a
// credential that could not be parsed.
type BadRequestError struct {
	Reason string
	Err    error
}

func (e *BadRequestError) Error() string { return "auth: invalid request: " + e.Reason }

func (e *BadRequestError) Unwrap() error { return e.Err }

// Is reports true for ErrBadRequest.
func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

// ErrorCode returns BadRequest.
func (e *BadRequestError) ErrorCode() protocol.ErrorCode { return protocol.ErrorCodeBadRequest }

// PublicMessage returns "Invalid request: <reason>".
func (e *BadRequestError) PublicMessage() string { return "Invalid request: " + e.Reason }

func badRequest(err error) *BadRequestError {
	return &BadRequestError{Reason: err.Error(), Err: err}
}

// ErrorCode maps err to its wire code. Errors without a code map to
// InternalError.
func ErrorCode(err error) protocol.ErrorCode {
	var c interface{ ErrorCode() protocol.ErrorCode }
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return protocol.ErrorCodeInternalError
}
