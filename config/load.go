package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/honeyid/secret"
)

// envOverrides are the HONEYID_* variables. Fields carry no defaults so an
// unset variable never replaces a value from the file.
type envOverrides struct {
	Addr            string        `env:"HONEYID_ADDR"`
	AppPublicID     string        `env:"HONEYID_APP_PUBLIC_ID"`
	AppAPIKey       secret.Value  `env:"HONEYID_APP_API_KEY"`
	AuthAPIKey      secret.Value  `env:"HONEYID_AUTH_API_KEY"`
	UsernameTimeout time.Duration `env:"HONEYID_USERNAME_TIMEOUT,strict"`
	CallTimeout     time.Duration `env:"HONEYID_CALL_TIMEOUT,strict"`
	Listen          string        `env:"HONEYID_LISTEN"`
	UsersBackend    string        `env:"HONEYID_USERS_BACKEND"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   secret.Value  `env:"REDIS_PASSWORD"`
	MaxFrameBytes   int64         `env:"HONEYID_MAX_FRAME_BYTES,strict"`
	UsersKeyPrefix  string        `env:"HONEYID_USERS_KEY_PREFIX"`
	LogLevel        string        `env:"HONEYID_LOG_LEVEL"`
}

// Load reads path (skipped when empty), applies environment overrides,
// resolves secret references and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		defer func() { _ = f.Close() }()
		if err := decodeYAML(f, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
		}
	}
	return finish(ctx, &cfg)
}

// Parse is Load for an in-memory document.
func Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(bytes.NewReader(data), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return finish(ctx, &cfg)
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func finish(ctx context.Context, cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}
	cfg.Addr = NormalizeAddr(cfg.Addr)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("config: environment: %w", err)
	}

	setString(&cfg.Addr, env.Addr)
	setString(&cfg.Listen, env.Listen)
	setString(&cfg.Users.Backend, env.UsersBackend)
	setString(&cfg.Users.RedisAddr, env.RedisAddr)
	setString(&cfg.Users.KeyPrefix, env.UsersKeyPrefix)
	if env.LogLevel != "" {
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = strings.ToLower(env.LogLevel)
	}
	if env.AppPublicID != "" {
		id, err := uuid.Parse(env.AppPublicID)
		if err != nil {
			return fmt.Errorf("config: HONEYID_APP_PUBLIC_ID: %w", err)
		}
		cfg.AppPublicID = id
	}
	if env.AppAPIKey.IsSet() {
		cfg.AppAPIKey = env.AppAPIKey
	}
	if env.AuthAPIKey.IsSet() {
		cfg.AuthAPIKey = env.AuthAPIKey
	}
	if env.RedisPassword.IsSet() {
		cfg.Users.RedisPassword = env.RedisPassword
	}
	if env.MaxFrameBytes != 0 {
		cfg.MaxFrameBytes = env.MaxFrameBytes
	}
	if env.UsernameTimeout != 0 {
		cfg.UsernameTimeout = env.UsernameTimeout
	}
	if env.CallTimeout != 0 {
		cfg.CallTimeout = env.CallTimeout
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func resolveSecrets(ctx context.Context, cfg *Config) (err error) {
	resolver, err := newResolver(cfg.Secrets)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resolver.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close providers: %w", ErrSecret, cerr)
		}
	}()

	if cfg.AppAPIKey, err = resolver.Resolve(ctx, cfg.AppAPIKey); err != nil {
		return fmt.Errorf("%w: app_api_key: %w", ErrSecret, err)
	}
	if cfg.AuthAPIKey, err = resolver.Resolve(ctx, cfg.AuthAPIKey); err != nil {
		return fmt.Errorf("%w: auth_api_key: %w", ErrSecret, err)
	}
	if cfg.Users.RedisPassword, err = resolver.Resolve(ctx, cfg.Users.RedisPassword); err != nil {
		return fmt.Errorf("%w: users.redis_password: %w", ErrSecret, err)
	}
	return nil
}

func newResolver(providers []SecretProvider) (*secret.Resolver, error) {
	if len(providers) == 0 {
		return secret.NewDefaultResolver(), nil
	}
	r := secret.NewResolver(true)
	for _, p := range providers {
		prov, err := secret.DefaultRegistry.Create(p.Name, p.Config)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("%w: provider %q: %w", ErrSecret, p.Name, err)
		}
		r.Register(prov)
	}
	return r, nil
}
