package authflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

type entry struct {
	state     State
	expiresAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]entry
	nowTime func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]entry),
		nowTime: time.Now,
	}
}

func (r *InMemoryRepo) Put(_ context.Context, state string, flow *State, ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	for k, e := range r.states {
		if !now.Before(e.expiresAt) {
			delete(r.states, k)
		}
	}
	r.states[state] = entry{state: *flow, expiresAt: now.Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.states[state]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.states, state)
	if !r.nowTime().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	flow := e.state
	return &flow, nil
}
