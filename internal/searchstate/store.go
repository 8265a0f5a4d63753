// Package searchstate holds the current search record shared by every
// surface that composes or runs queries.
package searchstate

import (
	"sync"

	"github.com/wesm/mailquery/internal/compose"
)

// Store is the shared search state. It is safe for concurrent use; the
// zero value is ready.
type Store struct {
	mu      sync.RWMutex
	current compose.SearchQuery
	version uint64
	subs    map[int]chan compose.SearchQuery
	nextID  int
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// SetSearch replaces the current record and notifies subscribers.
// Subscribers that are not keeping up miss intermediate records.
func (s *Store) SetSearch(q compose.SearchQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = q
	s.version++
	for _, ch := range s.subs {
		select {
		case ch <- q:
		default:
		}
	}
}

// Current returns the current record and how many times it has been set.
func (s *Store) Current() (compose.SearchQuery, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.version
}

// Subscribe returns a channel receiving each new record and a function
// that unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan compose.SearchQuery, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan compose.SearchQuery)
	}
	id := s.nextID
	s.nextID++
	ch := make(chan compose.SearchQuery, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

var _ compose.Sink = (*Store)(nil)
