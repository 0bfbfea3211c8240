package prefs

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences for the lifetime of the process.
type MemoryStore struct {
	lock  sync.Mutex
	saved *Preferences
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Preferences, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.saved == nil {
		return Preferences{}, ErrNotFound
	}
	return *s.saved, nil
}

func (s *MemoryStore) Save(_ context.Context, p Preferences) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.saved = &p
	return nil
}
