package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/honeyid/tokenstore"
)

// IDTokenConfig configures an IDTokenParser.
type IDTokenConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// SubjectClaim holds the user public id.
	// Default: "sub"
	SubjectClaim string
}

// KeyProvider retrieves signing keys for id token verification.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides one HMAC secret.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// IDTokenClaims is what an id token says about its user.
type IDTokenClaims struct {
	UserPublicID tokenstore.UserPublicID
	Issuer       string
	ExpiresAt    time.Time
	IssuedAt     time.Time
	Claims       map[string]any
}

// IDTokenParser extracts the user public id from id tokens returned by the
// identity service. With a KeyProvider the signature and expiry are
// verified; without one the token is decoded as-is, which is only sound for
// tokens read straight off the TLS connection to the identity service.
type IDTokenParser struct {
	config IDTokenConfig
	keys   KeyProvider
}

// NewIDTokenParser returns a parser. keys may be nil.
func NewIDTokenParser(config IDTokenConfig, keys KeyProvider) *IDTokenParser {
	if config.SubjectClaim == "" {
		config.SubjectClaim = "sub"
	}
	return &IDTokenParser{config: config, keys: keys}
}

// Verifies reports whether signatures are checked.
func (p *IDTokenParser) Verifies() bool { return p.keys != nil }

// Parse decodes raw and checks its issuer and audience.
func (p *IDTokenParser) Parse(ctx context.Context, raw string) (*IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	if p.keys == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		}
	} else {
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			return p.keys.GetKey(ctx, kid)
		})
		if err != nil {
			return nil, classifyJWTError(err)
		}
	}

	if p.config.Issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != p.config.Issuer {
			return nil, fmt.Errorf("%w: issuer %q", ErrTokenInvalid, iss)
		}
	}
	if p.config.Audience != "" {
		aud, _ := claims.GetAudience()
		if !slices.Contains(aud, p.config.Audience) {
			return nil, fmt.Errorf("%w: audience %v", ErrTokenInvalid, aud)
		}
	}

	owner, err := userPublicIDClaim(claims, p.config.SubjectClaim)
	if err != nil {
		return nil, err
	}
	out := &IDTokenClaims{UserPublicID: owner, Claims: claims}
	out.Issuer, _ = claims.GetIssuer()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

// UserPublicID returns the user public id carried by raw.
func (p *IDTokenParser) UserPublicID(ctx context.Context, raw string) (tokenstore.UserPublicID, error) {
	claims, err := p.Parse(ctx, raw)
	if err != nil {
		return 0, err
	}
	return claims.UserPublicID, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
}

// userPublicIDClaim accepts the id as a JSON number or a decimal string.
func userPublicIDClaim(claims jwt.MapClaims, name string) (tokenstore.UserPublicID, error) {
	switch v := claims[name].(type) {
	case string:
		return tokenstore.ParseUserPublicID(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrTokenInvalid, name)
		}
		return tokenstore.UserPublicID(int64(v)), nil
	case nil:
		return 0, fmt.Errorf("%w: %s", ErrMissingClaim, name)
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrTokenInvalid, name, v)
	}
}

var _ KeyProvider = (*StaticKeyProvider)(nil)
