package callflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCallEnded is returned by Save when the call was ended while the turn was
// still in flight. The late result must be discarded, not persisted.
var ErrCallEnded = errors.New("callflow: call already ended")

// CallStateStore persists call state between turns. Implementations return
// (nil, nil) for unknown call ids. End removes the state and leaves a
// tombstone so a turn racing the call-end event cannot resurrect it.
type CallStateStore interface {
	Get(ctx context.Context, callID string) (*CallState, error)
	Save(ctx context.Context, state *CallState) error
	End(ctx context.Context, callID string) error
}

// MemoryStore keeps call state in process memory, with a reaper that drops
// calls idle longer than the TTL.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*CallState
	ended  map[string]time.Time
	ttl    time.Duration
	done   chan struct{}
	once   sync.Once
	now    func() time.Time
}

// NewMemoryStore creates a memory store and starts its reaper.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		states: make(map[string]*CallState),
		ended:  make(map[string]time.Time),
		ttl:    ttl,
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go s.reap()
	return s
}

func (s *MemoryStore) Get(_ context.Context, callID string) (*CallState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[callID]
	if !ok {
		return nil, nil
	}
	out := *state
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, state *CallState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.ended[state.CallID]; gone {
		return ErrCallEnded
	}
	out := *state
	s.states[state.CallID] = &out
	return nil
}

func (s *MemoryStore) End(_ context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, callID)
	s.ended[callID] = s.now()
	return nil
}

// Len reports the number of live call states.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Close stops the reaper.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) reap() {
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *MemoryStore) reapOnce() {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range s.states {
		if state.LastActivityAt.Before(cutoff) {
			delete(s.states, id)
		}
	}
	for id, endedAt := range s.ended {
		if endedAt.Before(cutoff) {
			delete(s.ended, id)
		}
	}
}
