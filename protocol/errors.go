package protocol

import "fmt"

// ErrorCode is the numeric code carried by failure frames.
type ErrorCode uint32

const (
	ErrorCodeBadRequest          ErrorCode = 100400
	ErrorCodeInvalidAccessToken  ErrorCode = 100401
	ErrorCodeForbidden           ErrorCode = 100403
	ErrorCodeNotFound            ErrorCode = 100404
	ErrorCodeIncorrectAPIKey     ErrorCode = 100411
	ErrorCodeAPIKeyNotConfigured ErrorCode = 100412
	ErrorCodeInternalError       ErrorCode = 100500
)

// String returns a short name for known codes.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeBadRequest:
		return "bad_request"
	case ErrorCodeInvalidAccessToken:
		return "invalid_access_token"
	case ErrorCodeForbidden:
		return "forbidden"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeIncorrectAPIKey:
		return "incorrect_api_key"
	case ErrorCodeAPIKeyNotConfigured:
		return "api_key_not_configured"
	case ErrorCodeInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}
