package transcript

import "sync"

// Store is an ordered, append-only log of messages.
// Entries are never reordered, deduplicated, or removed.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	onAppend []func(Message)
}

// NewStore creates a store seeded with the given entries in order.
func NewStore(seed ...Message) *Store {
	s := &Store{messages: make([]Message, 0, len(seed)+16)}
	s.messages = append(s.messages, seed...)
	return s
}

// Append inserts msg at the end and notifies observers.
// Observers run after the lock is released, in registration order.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	observers := s.onAppend
	s.mu.Unlock()

	for _, fn := range observers {
		fn(msg)
	}
}

// All returns a copy of every entry in creation order.
func (s *Store) All() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Since returns a copy of the entries appended at or after index from.
func (s *Store) Since(from int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from >= len(s.messages) {
		return nil
	}
	out := make([]Message, len(s.messages)-from)
	copy(out, s.messages[from:])
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// OnAppend registers fn to be called after every append.
func (s *Store) OnAppend(fn func(Message)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppend = append(s.onAppend, fn)
}
