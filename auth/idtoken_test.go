package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/honeyid/tokenstore"
)

var hmacKey = []byte("id-token-test-key")

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(hmacKey)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestIDTokenParser_Verified(t *testing.T) {
	now := time.Now()
	parser := NewIDTokenParser(IDTokenConfig{Issuer: "honey.id", Audience: "app"}, NewStaticKeyProvider(hmacKey))

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		want    tokenstore.UserPublicID
		wantErr error
	}{
		{
			name: "string subject",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"sub": "42", "iss": "honey.id", "aud": "app", "exp": now.Add(time.Hour).Unix()})
			},
			want: 42,
		},
		{
			name: "numeric subject",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"sub": 43, "iss": "honey.id", "aud": []string{"other", "app"}})
			},
			want: 43,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"sub": "42", "iss": "honey.id", "aud": "app", "exp": now.Add(-time.Hour).Unix()})
			},
			wantErr: ErrTokenExpired,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"sub": "42", "iss": "evil", "aud": "app"})
			},
			wantErr: ErrTokenInvalid,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"sub": "42", "iss": "honey.id", "aud": "other"})
			},
			wantErr: ErrTokenInvalid,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return signHS256(t, jwt.MapClaims{"iss": "honey.id", "aud": "app"})
			},
			wantErr: ErrMissingClaim,
		},
		{
			name: "bad signature",
			token: func(t *testing.T) string {
				s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"}).SignedString([]byte("other"))
				return s
			},
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not.a.jwt" },
			wantErr: ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.UserPublicID(context.Background(), tt.token(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UserPublicID() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UserPublicID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UserPublicID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIDTokenParser_Unverified(t *testing.T) {
	parser := NewIDTokenParser(IDTokenConfig{}, nil)
	if parser.Verifies() {
		t.Fatal("Verifies() = true, want false")
	}

	// Signed with a key the parser never sees.
	raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "99",
		"iat": 1_700_000_000,
		"exp": 1_700_000_600,
	}).SignedString([]byte("unknown"))

	claims, err := parser.Parse(context.Background(), raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserPublicID != 99 {
		t.Errorf("UserPublicID = %v, want 99", claims.UserPublicID)
	}
	if want := time.Unix(1_700_000_600, 0); !claims.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, want)
	}
	if want := time.Unix(1_700_000_000, 0); !claims.IssuedAt.Equal(want) {
		t.Errorf("IssuedAt = %v, want %v", claims.IssuedAt, want)
	}
}

func TestIDTokenParser_CustomClaim(t *testing.T) {
	parser := NewIDTokenParser(IDTokenConfig{SubjectClaim: "userPubId"}, NewStaticKeyProvider(hmacKey))
	raw := signHS256(t, jwt.MapClaims{"sub": "someone", "userPubId": 7})

	got, err := parser.UserPublicID(context.Background(), raw)
	if err != nil {
		t.Fatalf("UserPublicID() error = %v", err)
	}
	if got != 7 {
		t.Errorf("UserPublicID() = %v, want 7", got)
	}
}

func TestIDTokenParser_JWKS(t *testing.T) {
	priv := mustRSAKey(t)
	srv := newJWKSServer(t, rsaJWK("k1", &priv.PublicKey))
	parser := NewIDTokenParser(IDTokenConfig{}, NewJWKSKeyProvider(JWKSConfig{URL: srv.URL}))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "12"})
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	got, err := parser.UserPublicID(context.Background(), raw)
	if err != nil {
		t.Fatalf("UserPublicID() error = %v", err)
	}
	if got != 12 {
		t.Errorf("UserPublicID() = %v, want 12", got)
	}
}
