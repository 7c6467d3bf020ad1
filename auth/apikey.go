package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/jonwraymond/honeyid/secret"
)

// APIKeyValidator checks a presented API key against one configured key.
// Only the SHA-256 digest of the configured key is retained.
type APIKeyValidator struct {
	digest     [sha256.Size]byte
	configured bool
}

// NewAPIKeyValidator returns a validator for key. An unset key yields a
// validator that reports ErrAPIKeyNotConfigured for every attempt.
func NewAPIKeyValidator(key secret.Value) *APIKeyValidator {
	if !key.IsSet() {
		return &APIKeyValidator{}
	}
	return &APIKeyValidator{
		digest:     sha256.Sum256([]byte(key.Reveal())),
		configured: true,
	}
}

// Configured reports whether a key is set.
func (v *APIKeyValidator) Configured() bool {
	return v != nil && v.configured
}

// Validate returns nil when presented matches the configured key,
// ErrIncorrectAPIKey when it does not, and ErrAPIKeyNotConfigured when no
// key is configured.
func (v *APIKeyValidator) Validate(presented string) error {
	if !v.Configured() {
		return ErrAPIKeyNotConfigured
	}
	got := sha256.Sum256([]byte(presented))
	if subtle.ConstantTimeCompare(got[:], v.digest[:]) != 1 {
		return ErrIncorrectAPIKey
	}
	return nil
}

// Fingerprint returns the first 12 hex digits of the configured key's
// SHA-256 digest, or "" when no key is configured. Operators compare it to
// see which key is deployed.
func (v *APIKeyValidator) Fingerprint() string {
	if !v.Configured() {
		return ""
	}
	return hex.EncodeToString(v.digest[:6])
}
