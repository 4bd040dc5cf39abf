package profile

import (
	"context"
	"sync"
)

// DefaultRating seeds a profile that has never been written.
const DefaultRating = 1000

// Record is the per-user slice of the profile that settlement touches.
type Record struct {
	Rating      int
	Wins        int
	Losses      int
	GamesPlayed int
}

// Store is the external profile dependency, keyed by userId with
// field-level reads and updates and no transactional guarantee.
type Store interface {
	Get(ctx context.Context, userID string) (Record, error)
	Update(ctx context.Context, userID string, rec Record) error
}

// MemStore is an in-process Store used by tests and by deployments
// without persistence credentials.
type MemStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

func (s *MemStore) Get(_ context.Context, userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[userID]; ok {
		return rec, nil
	}
	return Record{Rating: DefaultRating}, nil
}

func (s *MemStore) Update(_ context.Context, userID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = rec
	return nil
}
