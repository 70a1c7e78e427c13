package observe

import (
	"sort"
	"sync"
)

// Subject notifies registered watchers of new values. The zero value is ready to use.
type Subject[T any] struct {
	mu       sync.RWMutex
	next     int
	watchers map[int]func(T)
}

// Watch registers fn and returns a func that unregisters it.
func (s *Subject[T]) Watch(fn func(T)) func() {
	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Notify calls every watcher with v, in registration order, outside the lock.
func (s *Subject[T]) Notify(v T) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.watchers[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of registered watchers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}
