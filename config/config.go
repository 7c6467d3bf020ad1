package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/honeyid/observe"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/secret"
)

// DefaultAddr is the public honey.id endpoint.
const DefaultAddr = "wss://api.honey.id:443/"

// Config is the App configuration.
type Config struct {
	// Addr is the identity service WebSocket URL. Always ends in one "/".
	Addr string `yaml:"addr"`

	// AppPublicID identifies this App to the identity service.
	AppPublicID uuid.UUID `yaml:"app_public_id"`

	// AppAPIKey is presented by this App when it connects to the identity
	// service with ApiKeyConnect or calls TokenIntrospect.
	AppAPIKey secret.Value `yaml:"app_api_key"`

	// AuthAPIKey is the key the identity service presents when it connects
	// to this App. Unset means ApiKeyConnect reports "not configured".
	AuthAPIKey secret.Value `yaml:"auth_api_key"`

	// UsernameTimeout bounds the gap between SubmitUsername and
	// SubmitPassword during sign-in. Zero disables it.
	UsernameTimeout time.Duration `yaml:"username_timeout"`

	// CallTimeout bounds each request/response exchange. Zero disables it.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// MaxFrameBytes caps inbound WebSocket frames on both the client and the
	// App server. Zero keeps the 1 MiB default.
	MaxFrameBytes int64 `yaml:"max_frame_bytes"`

	// Listen is the address the App server binds.
	Listen string `yaml:"listen"`

	// Users selects the user store used by the App server.
	Users UsersConfig `yaml:"users"`

	// Secrets lists the providers secret references may name. Empty means
	// env and file.
	Secrets []SecretProvider `yaml:"secrets"`

	Observe observe.Config `yaml:"observe"`
}

// UsersConfig configures user storage.
type UsersConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`

	// RedisAddr is used by the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates to Redis. Accepts secret references.
	RedisPassword secret.Value `yaml:"redis_password"`

	// KeyPrefix namespaces redis keys.
	KeyPrefix string `yaml:"key_prefix"`

	// DefaultRoles are granted to new users, by name.
	DefaultRoles []string `yaml:"default_roles"`

	// RoleCacheTTL caches role lookups. Zero disables the cache.
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl"`
}

// SecretProvider names a secret provider and its settings.
type SecretProvider struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

// Default returns a Config with every optional field set.
func Default() Config {
	return Config{
		Addr:   DefaultAddr,
		Listen: ":8080",
		Users: UsersConfig{
			Backend:      "memory",
			DefaultRoles: []string{protocol.RoleAppNewUser.String()},
		},
		Observe: observe.Config{
			ServiceName: "honeyid",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// NormalizeAddr trims trailing slashes and appends exactly one.
func NormalizeAddr(addr string) string {
	return strings.TrimRight(addr, "/") + "/"
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Addr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddr, c.Addr, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme %q, want ws or wss", ErrInvalidAddr, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidAddr, c.Addr)
	}
	if c.AppPublicID == uuid.Nil {
		return ErrMissingAppPublicID
	}
	if c.UsernameTimeout < 0 {
		return fmt.Errorf("%w: username_timeout %v", ErrInvalidTimeout, c.UsernameTimeout)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("%w: call_timeout %v", ErrInvalidTimeout, c.CallTimeout)
	}
	if c.MaxFrameBytes < 0 {
		return fmt.Errorf("%w: max_frame_bytes %d", ErrInvalidFrameSize, c.MaxFrameBytes)
	}
	if err := c.Users.validate(); err != nil {
		return err
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("config: observe: %w", err)
	}
	return nil
}

// Roles parses DefaultRoles.
func (u UsersConfig) Roles() ([]protocol.Role, error) {
	roles := make([]protocol.Role, 0, len(u.DefaultRoles))
	for _, name := range u.DefaultRoles {
		r, err := protocol.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidUsers, err)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func (u UsersConfig) validate() error {
	switch u.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: backend %q, want memory or redis", ErrInvalidUsers, u.Backend)
	}
	if u.RoleCacheTTL < 0 {
		return fmt.Errorf("%w: role_cache_ttl %v", ErrInvalidUsers, u.RoleCacheTTL)
	}
	_, err := u.Roles()
	return err
}
