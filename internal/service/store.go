package service

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Puppy is the resource managed by the service.
type Puppy struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=64"`
	Age  int    `json:"age" validate:"gte=0,lte=30"`
}

// Store keeps puppies in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	puppies map[string]Puppy
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{puppies: make(map[string]Puppy)}
}

// List returns up to limit puppies ordered by name. A non-positive limit
// returns all of them.
func (s *Store) List(limit int) []Puppy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Puppy, 0, len(s.puppies))
	for _, p := range s.puppies {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Puppy) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get looks up the puppy with the given ID.
func (s *Store) Get(id string) (Puppy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.puppies[id]
	return p, ok
}

// Add stores p under a newly assigned ID and returns the stored value.
func (s *Store) Add(p Puppy) Puppy {
	p.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puppies[p.ID] = p
	return p
}
