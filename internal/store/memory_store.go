package store

import (
	"bytes"
	"context"
	"sync"
)

type inMemoryStore struct {
	store map[string][]byte
	mu    sync.RWMutex
}

func NewInMemoryStore() GlobalStateStore {
	return &inMemoryStore{
		store: make(map[string][]byte),
	}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.store[key]; ok {
		return bytes.Clone(v), nil
	}
	return nil, ErrStateNotFound
}

func (s *inMemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = bytes.Clone(value)
	return nil
}

func (s *inMemoryStore) Close() error {
	return nil
}
