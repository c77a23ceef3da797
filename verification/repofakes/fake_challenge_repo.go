package verificationrepofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/dashboard-auth/verification"
)

var _ verification.Repo = (*FakeChallengeRepo)(nil)

type FakeChallengeRepo struct {
	challenges map[string]verification.Challenge
	lock       sync.RWMutex
}

func NewFakeChallengeRepo() *FakeChallengeRepo {
	return &FakeChallengeRepo{
		challenges: make(map[string]verification.Challenge),
	}
}

func key(purpose verification.Purpose, subject string) string {
	return string(purpose) + ":" + subject
}

func (cr *FakeChallengeRepo) Put(_ context.Context, c *verification.Challenge) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.challenges[key(c.Purpose, c.Subject)] = *c
	return nil
}

func (cr *FakeChallengeRepo) Get(_ context.Context, purpose verification.Purpose, subject string) (*verification.Challenge, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	c, ok := cr.challenges[key(purpose, subject)]
	if !ok {
		return nil, verification.ErrNotFound
	}
	return &c, nil
}

func (cr *FakeChallengeRepo) IncrementAttempts(_ context.Context, purpose verification.Purpose, subject string) (int, error) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	c, ok := cr.challenges[key(purpose, subject)]
	if !ok {
		return 0, verification.ErrNotFound
	}
	c.Attempts++
	cr.challenges[key(purpose, subject)] = c
	return c.Attempts, nil
}

func (cr *FakeChallengeRepo) Delete(_ context.Context, purpose verification.Purpose, subject string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	delete(cr.challenges, key(purpose, subject))
	return nil
}
