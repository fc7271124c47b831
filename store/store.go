// Package store provides the ordered, id-keyed collections the sync
// controllers merge REST responses and push events into.
//
// Every operation is an idempotent merge: applying the same logical
// mutation twice, or applying a local REST result and its echoed push
// event in either order, converges to the same collection state. That
// property is what lets both delivery paths share one code path without
// coordination.
package store

import (
	"iter"
	"sync"
)

// Entity is anything with a stable server-assigned identifier.
type Entity interface {
	EntityID() string
}

// Ordering controls where newly created entities are inserted.
type Ordering int

const (
	// Append inserts new entities at the end (task-create semantics).
	Append Ordering = iota
	// Prepend inserts new entities at the front (project-create semantics,
	// newest first).
	Prepend
)

// Store is an ordered collection keyed by entity id.
//
// Reads always observe the current state, never a snapshot captured at
// subscription time, so push handlers bound once at startup stay correct
// for the lifetime of the store.
type Store[T Entity] struct {
	mu       sync.RWMutex
	ordering Ordering
	order    []string
	items    map[string]T
}

// New creates an empty store with the given insertion policy.
func New[T Entity](ordering Ordering) *Store[T] {
	return &Store[T]{
		ordering: ordering,
		items:    make(map[string]T),
	}
}

// Upsert replaces the entity in place when its id exists, preserving
// position, and otherwise inserts it according to the ordering policy.
// Returns an ordered snapshot of the collection.
func (s *Store[T]) Upsert(e T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.EntityID()
	if _, ok := s.items[id]; ok {
		s.items[id] = e
		return s.listLocked()
	}
	s.insertLocked(e)
	return s.listLocked()
}

// UpsertIfAbsent inserts only when the id is unknown. Push-originated
// creation events go through here: when the local optimistic insert
// already happened, the echoed event is a no-op, so duplicate delivery
// never produces two entries with the same id. Returns an ordered
// snapshot and whether the entity was inserted.
func (s *Store[T]) UpsertIfAbsent(e T) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[e.EntityID()]; ok {
		return s.listLocked(), false
	}
	s.insertLocked(e)
	return s.listLocked(), true
}

// Remove deletes the entry if present. Removing an unknown id is a no-op,
// which tolerates duplicate delete events and a delete arriving before the
// create it supersedes. Returns an ordered snapshot and whether anything
// was removed.
func (s *Store[T]) Remove(id string) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return s.listLocked(), false
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return s.listLocked(), true
}

// ReplaceAll swaps the full collection, used on initial fetch. Order
// follows the given slice; duplicate ids keep the last occurrence's value
// at the first occurrence's position.
func (s *Store[T]) ReplaceAll(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.items = make(map[string]T, len(items))
	for _, e := range items {
		id := e.EntityID()
		if _, ok := s.items[id]; !ok {
			s.order = append(s.order, id)
		}
		s.items[id] = e
	}
}

// Get returns the entity with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

// Len returns the number of entities in the collection.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns an ordered snapshot of the collection.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// All returns a lazy, restartable sequence over the collection in current
// order. Each restart observes the order at that moment.
func (s *Store[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range s.List() {
			if !yield(e) {
				return
			}
		}
	}
}

func (s *Store[T]) insertLocked(e T) {
	id := e.EntityID()
	s.items[id] = e
	if s.ordering == Prepend {
		s.order = append([]string{id}, s.order...)
		return
	}
	s.order = append(s.order, id)
}

func (s *Store[T]) listLocked() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}
