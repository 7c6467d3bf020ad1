package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// RedisConfig configures a Redis store. Defaults can be loaded with
// envdecode.
type RedisConfig struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Password for AUTH. ENV: REDIS_PASSWORD
	Password string `env:"REDIS_PASSWORD"`
	// DB selects the logical database. ENV: REDIS_DB
	DB int `env:"REDIS_DB,default=0"`
	// KeyPrefix for all keys. ENV: HONEYID_USERS_KEY_PREFIX
	KeyPrefix string `env:"HONEYID_USERS_KEY_PREFIX,default=honeyid:users:"`
}

const defaultKeyPrefix = "honeyid:users:"

// Hash fields of a user record.
const (
	fieldUsername  = "username"
	fieldApp       = "app_public_id"
	fieldRoles     = "roles"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// setRolesScript updates roles only for existing users.
var setRolesScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'roles', ARGV[1], 'updated_at', ARGV[2])
return 1
`)

// Redis is a Store keeping one hash per user.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
	opts      options
}

// NewRedis connects to cfg.Addr and pings it.
func NewRedis(ctx context.Context, cfg RedisConfig, opts ...Option) (*Redis, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("userstore: redis ping %s: %w", addr, err)
	}
	return NewRedisWithClient(cl, cfg.KeyPrefix, opts...), nil
}

// NewRedisFromEnv builds a Redis store using envdecode to populate
// RedisConfig.
func NewRedisFromEnv(ctx context.Context, opts ...Option) (*Redis, error) {
	var cfg RedisConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("userstore: decode env: %w", err)
	}
	return NewRedis(ctx, cfg, opts...)
}

// NewRedisWithClient wraps an existing client. An empty prefix uses
// "honeyid:users:".
func NewRedisWithClient(client redis.UniversalClient, keyPrefix string, opts ...Option) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix, opts: applyOptions(opts)}
}

// Close closes the Redis client.
func (r *Redis) Close() error { return r.client.Close() }

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Redis) userKey(id tokenstore.UserPublicID) string {
	return r.keyPrefix + "user:" + id.String()
}

// UpsertUser writes the profile and, for new users, the default roles and
// creation time, in one transaction.
func (r *Redis) UpsertUser(ctx context.Context, info auth.UserInfo) error {
	key := r.userKey(info.UserPublicID)
	now := r.opts.now().UTC().Format(time.RFC3339Nano)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values := []any{fieldUsername, info.Username, fieldUpdatedAt, now}
		if info.AppPublicID != nil {
			values = append(values, fieldApp, info.AppPublicID.String())
		}
		pipe.HSet(ctx, key, values...)
		pipe.HSetNX(ctx, key, fieldRoles, encodeRoles(r.opts.defaultRoles))
		pipe.HSetNX(ctx, key, fieldCreatedAt, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("userstore: upsert %s: %w", info.UserPublicID, err)
	}
	return nil
}

// RolesFor returns the user's roles.
func (r *Redis) RolesFor(ctx context.Context, id tokenstore.UserPublicID) ([]protocol.Role, error) {
	s, err := r.client.HGet(ctx, r.userKey(id), fieldRoles).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: roles for %s: %w", id, err)
	}
	return decodeRoles(s)
}

// Get returns the stored user.
func (r *Redis) Get(ctx context.Context, id tokenstore.UserPublicID) (User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return User{}, fmt.Errorf("userstore: get %s: %w", id, err)
	}
	if len(fields) == 0 {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decodeUser(id, fields)
}

// SetRoles replaces the user's roles.
func (r *Redis) SetRoles(ctx context.Context, id tokenstore.UserPublicID, roles []protocol.Role) error {
	now := r.opts.now().UTC().Format(time.RFC3339Nano)
	n, err := setRolesScript.Run(ctx, r.client, []string{r.userKey(id)}, encodeRoles(roles), now).Int()
	if err != nil {
		return fmt.Errorf("userstore: set roles for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decodeUser(id tokenstore.UserPublicID, fields map[string]string) (User, error) {
	u := User{PublicID: id, Username: fields[fieldUsername]}

	roles, err := decodeRoles(fields[fieldRoles])
	if err != nil {
		return User{}, err
	}
	u.Roles = roles

	if s := fields[fieldApp]; s != "" {
		app, err := uuid.Parse(s)
		if err != nil {
			return User{}, fmt.Errorf("%w: app_public_id: %w", ErrCorrupt, err)
		}
		u.AppPublicID = &app
	}
	if u.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return User{}, err
	}
	if u.UpdatedAt, err = parseTime(fields[fieldUpdatedAt]); err != nil {
		return User{}, err
	}
	return u, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return t, nil
}

var _ Store = (*Redis)(nil)
