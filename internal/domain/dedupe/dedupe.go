// Package dedupe provides concurrency-safe sets used to count each id once.
package dedupe

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// Deduper records ids so each is counted at most once.
type Deduper[K cmp.Ordered] interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(id K) bool

	// Sorted returns the recorded ids in ascending order.
	Sorted() []K

	Size() int64
}

// set implements Deduper with a map guarded by a RWMutex.
type set[K cmp.Ordered] struct {
	mu   sync.RWMutex
	seen map[K]struct{}
	size atomic.Int64
}

// New creates an empty set.
func New[K cmp.Ordered](opts ...Option) Deduper[K] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &set[K]{seen: make(map[K]struct{}, o.capacity)}
}

func (s *set[K]) SeenAndRecord(id K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return true
	}
	s.seen[id] = struct{}{}
	s.size.Add(1)
	return false
}

func (s *set[K]) Sorted() []K {
	s.mu.RLock()
	out := make([]K, 0, len(s.seen))
	for id := range s.seen {
		out = append(out, id)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}

func (s *set[K]) Size() int64 {
	return s.size.Load()
}
