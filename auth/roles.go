package auth

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// RoleLookup maps a user to the roles a user connection is granted.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Callers must not modify the returned slice.
type RoleLookup interface {
	RolesFor(ctx context.Context, user tokenstore.UserPublicID) ([]protocol.Role, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, user tokenstore.UserPublicID) ([]protocol.Role, error)

// RolesFor calls f.
func (f RoleLookupFunc) RolesFor(ctx context.Context, user tokenstore.UserPublicID) ([]protocol.Role, error) {
	return f(ctx, user)
}

// StaticRoles grants the same roles to every user.
type StaticRoles []protocol.Role

// RolesFor returns s.
func (s StaticRoles) RolesFor(_ context.Context, _ tokenstore.UserPublicID) ([]protocol.Role, error) {
	return s, nil
}

// DefaultCacheTTL is how long CachedRoleLookup keeps an entry.
const DefaultCacheTTL = time.Minute

// CachedRoleLookup memoizes another RoleLookup. Concurrent misses for the
// same user share one call to the underlying lookup. Errors are not cached.
type CachedRoleLookup struct {
	next  RoleLookup
	cache *gocache.Cache
	group singleflight.Group
}

// NewCachedRoleLookup caches next for ttl, or DefaultCacheTTL when ttl is
// zero.
func NewCachedRoleLookup(next RoleLookup, ttl time.Duration) *CachedRoleLookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRoleLookup{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// RolesFor returns cached roles or loads them.
func (c *CachedRoleLookup) RolesFor(ctx context.Context, user tokenstore.UserPublicID) ([]protocol.Role, error) {
	key := user.String()
	if v, ok := c.cache.Get(key); ok {
		return v.([]protocol.Role), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		roles, err := c.next.RolesFor(ctx, user)
		if err != nil {
			return nil, err
		}
		roles = cloneRoles(roles)
		c.cache.SetDefault(key, roles)
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]protocol.Role), nil
}

// Invalidate drops the cached roles for user, so a role change takes effect
// on the user's next connect.
func (c *CachedRoleLookup) Invalidate(user tokenstore.UserPublicID) {
	c.cache.Delete(user.String())
}

// Len returns the number of cached entries, expired ones included until the
// next cleanup.
func (c *CachedRoleLookup) Len() int {
	return c.cache.ItemCount()
}

// Permits reports whether a connection holding have may call a method
// requiring any of want.
func Permits(have, want []protocol.Role) bool {
	return protocol.RolesIntersect(have, want)
}

var (
	_ RoleLookup = RoleLookupFunc(nil)
	_ RoleLookup = StaticRoles(nil)
	_ RoleLookup = (*CachedRoleLookup)(nil)
)
