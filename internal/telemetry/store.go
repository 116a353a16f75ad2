package telemetry

import (
	"sync"
	"time"
)

// Store holds the single authoritative device snapshot and serializes
// merges from the message-handling path.
//
// Thread Safety:
//   - Merge and Latest are safe for concurrent use. The broker client
//     invokes message handlers from its own goroutines, so all snapshot
//     access goes through the store mutex.
type Store struct {
	mu          sync.RWMutex
	snapshot    Snapshot
	initialized bool

	// now is swappable for deterministic timestamps in tests.
	now func() time.Time
}

// NewStore creates an empty store. The snapshot is undefined until the
// first merge; Latest reports ok=false before that.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Merge shallow-merges a partial update into the snapshot, overwriting
// only the fields present in the partial, and stamps the merge time.
// The first call lazily initializes the snapshot with zeroed defaults.
//
// Returns a copy of the merged snapshot for fan-out.
func (s *Store) Merge(p Partial) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	p.apply(&s.snapshot)
	s.snapshot.TimestampMs = s.now().UnixMilli()

	return s.snapshot
}

// Latest returns a copy of the current snapshot. ok is false until the
// first message has been merged; a zero-valued snapshot before any data
// arrives is distinct from a snapshot whose readings are genuinely zero.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.initialized
}
