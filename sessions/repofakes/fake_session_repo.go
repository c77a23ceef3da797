package sessionrepofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/dashboard-auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]sessions.Session),
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, s *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.sessions[s.TokenHash] = *s
	return nil
}

func (sr *FakeSessionRepo) Update(_ context.Context, s *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	if _, ok := sr.sessions[s.TokenHash]; !ok {
		return sessions.ErrNotFound
	}
	sr.sessions[s.TokenHash] = *s
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, tokenHash string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	s, ok := sr.sessions[tokenHash]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return &s, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, tokenHash string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	delete(sr.sessions, tokenHash)
	return nil
}

func (sr *FakeSessionRepo) DeleteByUser(_ context.Context, userID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	for hash, s := range sr.sessions {
		if s.UserID == userID {
			delete(sr.sessions, hash)
		}
	}
	return nil
}

// Count is used by tests to assert how many sessions exist.
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
