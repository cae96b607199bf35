package pattern

import (
	"sync"

	"github.com/Veraticus/estimatch/internal/model"
)

// MemoryStore is a mutex-guarded in-process Store that iterates in insertion order.
type MemoryStore struct {
	patterns map[string]model.MatchingPattern
	order    []string
	mu       sync.RWMutex
}

// NewMemoryStore creates a store seeded with the given patterns.
func NewMemoryStore(initial ...model.MatchingPattern) *MemoryStore {
	s := &MemoryStore{
		patterns: make(map[string]model.MatchingPattern, len(initial)),
	}
	for _, p := range initial {
		s.Put(p)
	}
	return s
}

// Get returns the pattern stored under key.
func (s *MemoryStore) Get(key string) (model.MatchingPattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[key]
	return p, ok
}

// Put stores p under p.Key, replacing any existing pattern with that key.
func (s *MemoryStore) Put(p model.MatchingPattern) {
	if p.Key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.patterns[p.Key]; !exists {
		s.order = append(s.order, p.Key)
	}
	s.patterns[p.Key] = p
}

// Update mutates an existing pattern in place.
func (s *MemoryStore) Update(key string, fn func(p *model.MatchingPattern)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[key]
	if !ok {
		return false
	}
	fn(&p)
	p.Key = key
	s.patterns[key] = p
	return true
}

// Upsert mutates the pattern under key, creating it first when missing.
func (s *MemoryStore) Upsert(key string, fn func(p *model.MatchingPattern, exists bool)) {
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.patterns[key]
	fn(&p, exists)
	p.Key = key
	if !exists {
		s.order = append(s.order, key)
	}
	s.patterns[key] = p
}

// Snapshot returns a copy of all patterns in insertion order.
func (s *MemoryStore) Snapshot() []model.MatchingPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MatchingPattern, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.patterns[key])
	}
	return out
}

// Len returns the number of stored patterns.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Replace discards all patterns and loads the given set.
func (s *MemoryStore) Replace(patterns []model.MatchingPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patterns = make(map[string]model.MatchingPattern, len(patterns))
	s.order = s.order[:0]
	for _, p := range patterns {
		if p.Key == "" {
			continue
		}
		if _, exists := s.patterns[p.Key]; !exists {
			s.order = append(s.order, p.Key)
		}
		s.patterns[p.Key] = p
	}
}
