package auth

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/jonwraymond/honeyid/protocol"
)

type fakeConn struct {
	id       string
	roles    []protocol.Role
	setCalls int
}

func newFakeConn() *fakeConn { return &fakeConn{id: "conn-1"} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) SetRoles(roles []protocol.Role) {
	c.roles = slices.Clone(roles)
	c.setCalls++
}

func (c *fakeConn) Roles() []protocol.Role { return c.roles }

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]UserInfo
	err   error
	calls int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: make(map[int64]UserInfo)} }

func (u *fakeUsers) UpsertUser(_ context.Context, info UserInfo) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return u.err
	}
	u.users[int64(info.UserPublicID)] = info
	return nil
}

func (u *fakeUsers) get(id int64) (UserInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	info, ok := u.users[id]
	return info, ok
}

var errBoom = errors.New("boom")
