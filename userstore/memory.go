package userstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jonwraymond/honeyid/auth"
	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

// Memory is a process-local Store.
type Memory struct {
	opts options

	mu    sync.RWMutex
	users map[tokenstore.UserPublicID]*User
}

// NewMemory returns an empty Memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		opts:  applyOptions(opts),
		users: make(map[tokenstore.UserPublicID]*User),
	}
}

// UpsertUser creates the user with the default roles or updates its
// profile. A nil AppPublicID keeps the stored one.
func (m *Memory) UpsertUser(_ context.Context, info auth.UserInfo) error {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[info.UserPublicID]
	if !ok {
		u = &User{
			PublicID:  info.UserPublicID,
			Roles:     slices.Clone(m.opts.defaultRoles),
			CreatedAt: now,
		}
		m.users[info.UserPublicID] = u
	}
	u.Username = info.Username
	if info.AppPublicID != nil {
		app := *info.AppPublicID
		u.AppPublicID = &app
	}
	u.UpdatedAt = now
	return nil
}

// RolesFor returns the user's roles.
func (m *Memory) RolesFor(_ context.Context, id tokenstore.UserPublicID) ([]protocol.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return slices.Clone(u.Roles), nil
}

// Get returns a copy of the stored user.
func (m *Memory) Get(_ context.Context, id tokenstore.UserPublicID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *u
	out.Roles = slices.Clone(u.Roles)
	if u.AppPublicID != nil {
		app := *u.AppPublicID
		out.AppPublicID = &app
	}
	return out, nil
}

// SetRoles replaces the user's roles.
func (m *Memory) SetRoles(_ context.Context, id tokenstore.UserPublicID, roles []protocol.Role) error {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	u.Roles = slices.Clone(roles)
	u.UpdatedAt = now
	return nil
}

// Len returns the number of stored users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

var _ Store = (*Memory)(nil)
