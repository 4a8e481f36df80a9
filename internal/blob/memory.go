package blob

import (
	"context"
	"sync"

	"marginalia/internal/apperr"
)

// Memory is an in-process Store used by tests.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Put(_ context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.m[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "blob", ID: key}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
