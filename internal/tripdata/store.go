package tripdata

import (
	"sync"
	"time"

	"github.com/bluele/gcache"
	"taxidash.nyctlc.dev/internal/models"
)

// Store is the backing storage of the result cache.
type Store interface {
	Get(key string) (models.DerivedRowSet, bool)
	Set(key string, rows models.DerivedRowSet)
	Purge()
	Len() int
}

// MapStore keeps every result for the life of the process.
type MapStore struct {
	mu   sync.RWMutex
	rows map[string]models.DerivedRowSet
}

func NewMapStore() *MapStore {
	return &MapStore{rows: make(map[string]models.DerivedRowSet)}
}

func (s *MapStore) Get(key string) (models.DerivedRowSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.rows[key]
	return rows, ok
}

func (s *MapStore) Set(key string, rows models.DerivedRowSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key] = rows
}

func (s *MapStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]models.DerivedRowSet)
}

func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// LRUStore evicts the least recently used result beyond size entries, and
// expires entries after ttl when ttl is positive.
type LRUStore struct {
	cache gcache.Cache
}

func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &LRUStore{cache: builder.Build()}
}

func (s *LRUStore) Get(key string) (models.DerivedRowSet, bool) {
	v, err := s.cache.Get(key)
	if err != nil {
		return nil, false
	}
	rows, ok := v.(models.DerivedRowSet)
	return rows, ok
}

func (s *LRUStore) Set(key string, rows models.DerivedRowSet) {
	_ = s.cache.Set(key, rows)
}

func (s *LRUStore) Purge() {
	s.cache.Purge()
}

func (s *LRUStore) Len() int {
	return s.cache.Len(true)
}

// NewStore picks the map store for size 0 and an LRU store otherwise.
func NewStore(size int, ttl time.Duration) Store {
	if size <= 0 {
		return NewMapStore()
	}
	return NewLRUStore(size, ttl)
}
