package tokenstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AccessToken is an opaque 128-bit token issued by the identity service.
type AccessToken uuid.UUID

// ParseAccessToken parses a UUID-formatted token string.
func ParseAccessToken(s string) (AccessToken, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return AccessToken(id), nil
}

// NewAccessToken returns a random token. Used by tests and local tooling;
// production tokens come from the identity service.
func NewAccessToken() AccessToken {
	return AccessToken(uuid.New())
}

// String returns the canonical UUID form.
func (t AccessToken) String() string {
	return uuid.UUID(t).String()
}

// UserPublicID is the externally visible identifier of a user.
type UserPublicID int64

// String returns the decimal form.
func (id UserPublicID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserPublicID parses the decimal form.
func ParseUserPublicID(s string) (UserPublicID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tokenstore: invalid user public id %q: %w", s, err)
	}
	return UserPublicID(n), nil
}

// Record is one stored token. Records are never mutated after insert.
type Record struct {
	// ID is assigned at insert from a monotonic counter and never reused.
	ID uint64

	// Owner is the user the token belongs to.
	Owner UserPublicID

	// Token is the access token.
	Token AccessToken

	// CreatedAt is when the record was inserted.
	CreatedAt time.Time
}
