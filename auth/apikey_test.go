package auth

import (
	"errors"
	"testing"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/secret"
)

func TestAPIKeyValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		configured secret.Value
		presented  string
		wantErr    error
	}{
		{name: "match", configured: secret.New("secret"), presented: "secret"},
		{name: "wrong key", configured: secret.New("secret"), presented: "wrong", wantErr: ErrIncorrectAPIKey},
		{name: "empty presented", configured: secret.New("secret"), presented: "", wantErr: ErrIncorrectAPIKey},
		{name: "prefix only", configured: secret.New("secret"), presented: "secre", wantErr: ErrIncorrectAPIKey},
		{name: "not configured", configured: secret.Value{}, presented: "secret", wantErr: ErrAPIKeyNotConfigured},
		{name: "not configured empty", configured: secret.Value{}, presented: "", wantErr: ErrAPIKeyNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewAPIKeyValidator(tt.configured)
			err := v.Validate(tt.presented)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKeyValidator_DistinctErrors(t *testing.T) {
	if errors.Is(ErrIncorrectAPIKey, ErrAPIKeyNotConfigured) {
		t.Fatal("ErrIncorrectAPIKey matches ErrAPIKeyNotConfigured")
	}
	if got := ErrorCode(ErrIncorrectAPIKey); got != protocol.ErrorCodeIncorrectAPIKey {
		t.Errorf("ErrorCode(ErrIncorrectAPIKey) = %v, want %v", got, protocol.ErrorCodeIncorrectAPIKey)
	}
	if got := ErrorCode(ErrAPIKeyNotConfigured); got != protocol.ErrorCodeAPIKeyNotConfigured {
		t.Errorf("ErrorCode(ErrAPIKeyNotConfigured) = %v, want %v", got, protocol.ErrorCodeAPIKeyNotConfigured)
	}
}

func TestAPIKeyValidator_Nil(t *testing.T) {
	var v *APIKeyValidator
	if v.Configured() {
		t.Error("nil validator Configured() = true, want false")
	}
	if err := v.Validate("x"); !errors.Is(err, ErrAPIKeyNotConfigured) {
		t.Errorf("nil validator Validate() = %v, want %v", err, ErrAPIKeyNotConfigured)
	}
}

func TestAPIKeyValidator_Fingerprint(t *testing.T) {
	tests := []struct {
		name string
		key  secret.Value
		want string
	}{
		// sha256("secret") = 2bb80d537b1da3e3...
		{name: "configured", key: secret.New("secret"), want: "2bb80d537b1d"},
		{name: "unset", key: secret.Value{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewAPIKeyValidator(tt.key).Fingerprint(); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
	if NewAPIKeyValidator(secret.New("a")).Fingerprint() == NewAPIKeyValidator(secret.New("b")).Fingerprint() {
		t.Error("Fingerprint() collides for different keys")
	}
}
