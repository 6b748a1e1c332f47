package snapshot

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory snapshot store. Digests are kept
// JSON-encoded so callers never share state with the store.
type MemoryStore struct {
	data  map[string][]byte
	mutex sync.RWMutex
}

// NewMemoryStore creates a new in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Save stores a digest under its date key, replacing any previous one
func (s *MemoryStore) Save(ctx context.Context, dateKey string, digest *domain.Digest) error {
	payload, err := json.Marshal(digest)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[dateKey] = payload
	return nil
}

// Load retrieves the digest stored under a date key
func (s *MemoryStore) Load(ctx context.Context, dateKey string) (*domain.Digest, error) {
	s.mutex.RLock()
	payload, exists := s.data[dateKey]
	s.mutex.RUnlock()

	if !exists {
		return nil, domain.ErrSnapshotNotFound
	}
	return decodeDigest(payload)
}

// LoadLatest retrieves the digest with the greatest date key
func (s *MemoryStore) LoadLatest(ctx context.Context) (*domain.Digest, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.data) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return decodeDigest(s.data[keys[len(keys)-1]])
}

// Size returns the number of stored snapshots
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

func decodeDigest(payload []byte) (*domain.Digest, error) {
	var digest domain.Digest
	if err := json.Unmarshal(payload, &digest); err != nil {
		return nil, err
	}
	return &digest, nil
}
