// Package history keeps the bounded, append-only buffer of polled samples.
package history

import (
	"sync"

	"smartcity-dashboard/internal/modules/sensors/types"
)

// MaxHistory is the number of samples retained for charting.
const MaxHistory = 200

// Store is a chronological buffer of samples ordered by append order.
// When full, appends discard the oldest entries.
type Store struct {
	mu       sync.RWMutex
	capacity int
	samples  []types.Sample
}

// NewStore returns an empty store holding at most MaxHistory samples.
func NewStore() *Store {
	return NewStoreWithCapacity(MaxHistory)
}

// NewStoreWithCapacity returns an empty store with the given bound.
// Non-positive capacities fall back to MaxHistory.
func NewStoreWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = MaxHistory
	}
	return &Store{
		capacity: capacity,
		samples:  make([]types.Sample, 0, capacity),
	}
}

// Append adds sample to the end, trimming from the front past capacity.
func (s *Store) Append(sample types.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)
	if len(s.samples) > s.capacity {
		s.samples = s.samples[len(s.samples)-s.capacity:]
	}
}

// All returns a copy of the current contents in chronological order.
func (s *Store) All() []types.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Latest returns the most recently appended sample.
func (s *Store) Latest() (types.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return types.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

func (s *Store) Capacity() int {
	return s.capacity
}
