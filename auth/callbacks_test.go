package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jonwraymond/honeyid/protocol"
	"github.com/jonwraymond/honeyid/tokenstore"
)

func TestReceiveToken(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	store := tokenstore.NewMemoryStore()
	h := NewReceiveToken(users, store)

	token := tokenstore.NewAccessToken()
	params, _ := json.Marshal(protocol.ReceiveTokenRequest{UserPubID: 42, Username: "alice", Token: token.String()})
	if _, err := h.ServeRPC(ctx, nil, params); err != nil {
		t.Fatalf("ServeRPC() error = %v", err)
	}

	owner, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if owner != 42 {
		t.Errorf("Validate() = %v, want 42", owner)
	}
	if info, ok := users.get(42); !ok || info.Username != "alice" {
		t.Errorf("stored user = %+v, %v, want alice", info, ok)
	}
}

func TestReceiveToken_UnparsableTokenFailsWhole(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	store := tokenstore.NewMemoryStore()
	h := NewReceiveToken(users, store)

	_, err := h.Receive(ctx, protocol.ReceiveTokenRequest{UserPubID: 42, Username: "alice", Token: "not-a-token"})
	if err == nil {
		t.Fatal("Receive() error = nil, want failure")
	}
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("Receive() error = %v, want %v", err, ErrBadRequest)
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0", store.Len())
	}
	// The upsert already happened and is not rolled back.
	if users.calls != 1 {
		t.Errorf("UpsertUser calls = %d, want 1", users.calls)
	}
}

func TestReceiveToken_DuplicateToken(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	h := NewReceiveToken(newFakeUsers(), store)

	t1 := tokenstore.NewAccessToken().String()
	if _, err := h.Receive(ctx, protocol.ReceiveTokenRequest{UserPubID: 1, Token: t1}); err != nil {
		t.Fatalf("Receive(U1, T1) error = %v", err)
	}
	_, err := h.Receive(ctx, protocol.ReceiveTokenRequest{UserPubID: 2, Token: t1})
	if !errors.Is(err, tokenstore.ErrDuplicateKey) {
		t.Fatalf("Receive(U2, T1) error = %v, want %v", err, tokenstore.ErrDuplicateKey)
	}
	if got := ErrorCode(err); got != protocol.ErrorCodeInternalError {
		t.Errorf("ErrorCode() = %v, want %v", got, protocol.ErrorCodeInternalError)
	}
}

func TestReceiveToken_UpsertFailure(t *testing.T) {
	users := newFakeUsers()
	users.err = errBoom
	store := tokenstore.NewMemoryStore()
	h := NewReceiveToken(users, store)

	_, err := h.Receive(context.Background(), protocol.ReceiveTokenRequest{
		UserPubID: 1,
		Token:     tokenstore.NewAccessToken().String(),
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Receive() error = %v, want %v", err, errBoom)
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0", store.Len())
	}
}

func TestReceiveToken_BadParams(t *testing.T) {
	h := NewReceiveToken(newFakeUsers(), tokenstore.NewMemoryStore())
	_, err := h.ServeRPC(context.Background(), nil, json.RawMessage(`{"userPubId":"x"}`))
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("ServeRPC() error = %v, want %v", err, ErrBadRequest)
	}
}

func TestReceiveUserInfo(t *testing.T) {
	app := uuid.New()
	token := tokenstore.NewAccessToken().String()
	bad := "garbage"

	tests := []struct {
		name        string
		req         protocol.ReceiveUserInfoRequest
		wantErr     error
		wantLen     int
		wantUpserts int
	}{
		{
			name:        "profile only",
			req:         protocol.ReceiveUserInfoRequest{UserPubID: 5, Username: "bob", AppPubID: &app},
			wantUpserts: 1,
		},
		{
			name:        "profile and token",
			req:         protocol.ReceiveUserInfoRequest{UserPubID: 5, Username: "bob", Token: &token},
			wantLen:     1,
			wantUpserts: 1,
		},
		{
			name:        "unparsable token",
			req:         protocol.ReceiveUserInfoRequest{UserPubID: 5, Username: "bob", Token: &bad},
			wantErr:     ErrBadRequest,
			wantUpserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUsers()
			store := tokenstore.NewMemoryStore()
			h := NewReceiveUserInfo(users, store)

			_, err := h.Receive(context.Background(), tt.req)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Receive() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Receive() error = %v, want %v", err, tt.wantErr)
			}
			if store.Len() != tt.wantLen {
				t.Errorf("store.Len() = %d, want %d", store.Len(), tt.wantLen)
			}
			if users.calls != tt.wantUpserts {
				t.Errorf("UpsertUser calls = %d, want %d", users.calls, tt.wantUpserts)
			}
		})
	}
}

func TestReceiveUserInfo_StoresAppID(t *testing.T) {
	app := uuid.New()
	users := newFakeUsers()
	h := NewReceiveUserInfo(users, tokenstore.NewMemoryStore())
	params, _ := json.Marshal(protocol.ReceiveUserInfoRequest{UserPubID: 9, Username: "carol", AppPubID: &app})

	if _, err := h.ServeRPC(context.Background(), nil, params); err != nil {
		t.Fatalf("ServeRPC() error = %v", err)
	}
	info, ok := users.get(9)
	if !ok || info.AppPublicID == nil || *info.AppPublicID != app {
		t.Errorf("stored user = %+v, want app %v", info, app)
	}
}

func TestReceive_NoUserStore(t *testing.T) {
	h := NewReceiveToken(nil, tokenstore.NewMemoryStore())
	_, err := h.Receive(context.Background(), protocol.ReceiveTokenRequest{UserPubID: 1, Token: tokenstore.NewAccessToken().String()})
	if !errors.Is(err, ErrNoUserStore) {
		t.Errorf("Receive() error = %v, want %v", err, ErrNoUserStore)
	}
}
