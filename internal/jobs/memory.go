package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]Job
	locks map[string]lease
	seq   uint64
	now   func() time.Time
}

type lease struct {
	token   uint64
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  map[string]Job{},
		locks: map[string]lease{},
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, nil
}

func (s *MemoryStore) Put(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, id string, ttl time.Duration) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if l, ok := s.locks[id]; ok && now.Before(l.expires) {
		return nil, fmt.Errorf("job %s: %w", id, ErrLocked)
	}
	s.seq++
	mine := lease{token: s.seq, expires: now.Add(ttl)}
	s.locks[id] = mine
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// An expired lease may have been taken over; only drop our own.
		if l, ok := s.locks[id]; ok && l.token == mine.token {
			delete(s.locks, id)
		}
	}, nil
}
