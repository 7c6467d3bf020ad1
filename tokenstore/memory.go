package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MemoryStore is a process-local Store with unique owner and token indexes.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint64
	records map[uint64]*Record
	byOwner map[UserPublicID]uint64
	byToken map[AccessToken]uint64

	now      func() time.Time
	inserted metric.Int64Counter
	rejected metric.Int64Counter
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMeter records insert outcomes on meter.
func WithMeter(meter metric.Meter) Option {
	return func(s *MemoryStore) {
		if meter == nil {
			return
		}
		if c, err := meter.Int64Counter(
			"honeyid.tokens.inserted",
			metric.WithDescription("Access tokens stored"),
			metric.WithUnit("{token}"),
		); err == nil {
			s.inserted = c
		}
		if c, err := meter.Int64Counter(
			"honeyid.tokens.rejected",
			metric.WithDescription("Access token inserts rejected as duplicates"),
			metric.WithUnit("{token}"),
		); err == nil {
			s.rejected = c
		}
	}
}

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	meter := noop.NewMeterProvider().Meter("noop")
	inserted, _ := meter.Int64Counter("honeyid.tokens.inserted")
	rejected, _ := meter.Int64Counter("honeyid.tokens.rejected")

	s := &MemoryStore{
		nextID:   1,
		records:  make(map[uint64]*Record),
		byOwner:  make(map[UserPublicID]uint64),
		byToken:  make(map[AccessToken]uint64),
		now:      time.Now,
		inserted: inserted,
		rejected: rejected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores token for owner.
func (s *MemoryStore) Insert(ctx context.Context, owner UserPublicID, token AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOwner[owner]; exists {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("index", "owner")))
		return fmt.Errorf("%w: owner %s already has a token", ErrDuplicateKey, owner)
	}
	if _, exists := s.byToken[token]; exists {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("index", "token")))
		return fmt.Errorf("%w: token already issued", ErrDuplicateKey)
	}

	id := s.nextID
	s.nextID++
	s.records[id] = &Record{
		ID:        id,
		Owner:     owner,
		Token:     token,
		CreatedAt: s.now(),
	}
	s.byOwner[owner] = id
	s.byToken[token] = id

	s.inserted.Add(ctx, 1)
	return nil
}

// Validate returns the owner of token.
func (s *MemoryStore) Validate(_ context.Context, token AccessToken) (UserPublicID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return 0, ErrNotFound
	}
	return s.records[id].Owner, nil
}

// Lookup returns the record owned by owner.
func (s *MemoryStore) Lookup(_ context.Context, owner UserPublicID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byOwner[owner]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *s.records[id], nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
