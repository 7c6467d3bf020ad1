package userstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// User is a stored user.
type User struct {
	PublicID    tokenstore.UserPublicID
	Username    string
	AppPublicID *uuid.UUID
	Roles       []protocol.Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the full user storage surface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - UpsertUser never changes roles of an existing user.
// - RolesFor and Get return ErrNotFound for unknown users.
type Store interface {
	auth.UserStore
	auth.RoleLookup

	// Get returns the stored user.
	Get(ctx context.Context, id tokenstore.UserPublicID) (User, error)

	// SetRoles replaces the roles of an existing user.
	SetRoles(ctx context.Context, id tokenstore.UserPublicID, roles []protocol.Role) error
}

// DefaultRoles are granted to users on creation.
var DefaultRoles = []protocol.Role{protocol.RoleAppNewUser}

// Option configures a Store.
type Option func(*options)

type options struct {
	defaultRoles []protocol.Role
	now          func() time.Time
}

func applyOptions(opts []Option) options {
	o := options{defaultRoles: DefaultRoles, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDefaultRoles overrides the roles granted on creation.
func WithDefaultRoles(roles ...protocol.Role) Option {
	return func(o *options) {
		o.defaultRoles = slices.Clone(roles)
	}
}

// WithClock overrides the clock used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Roles are stored as their wire codes so values without a name survive a
// round trip.
func encodeRoles(roles []protocol.Role) string {
	codes := make([]string, len(roles))
	for i, r := range roles {
		codes[i] = strconv.FormatUint(uint64(r), 10)
	}
	return strings.Join(codes, ",")
}

func decodeRoles(s string) ([]protocol.Role, error) {
	if s == "" {
		return []protocol.Role{}, nil
	}
	parts := strings.Split(s, ",")
	roles := make([]protocol.Role, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: role %q: %w", ErrCorrupt, p, err)
		}
		roles = append(roles, protocol.Role(n))
	}
	return roles, nil
}
