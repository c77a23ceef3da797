package membershiprepofakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-auth/memberships"
)

var _ memberships.Repo = (*FakeMembershipRepo)(nil)

type FakeMembershipRepo struct {
	memberships map[string]memberships.Membership
	lock        sync.RWMutex
}

func NewFakeMembershipRepo() *FakeMembershipRepo {
	return &FakeMembershipRepo{
		memberships: make(map[string]memberships.Membership),
	}
}

func (mr *FakeMembershipRepo) Create(_ context.Context, m *memberships.Membership) error {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	for _, existing := range mr.memberships {
		if existing.UserID == m.UserID && existing.OrganizationID == m.OrganizationID {
			return memberships.ErrAlreadyExists
		}
	}
	if m.ID == "" {
		m.ID = "om_" + uuid.New().String()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	stored.Organization, stored.User = nil, nil
	mr.memberships[m.ID] = stored
	return nil
}

func (mr *FakeMembershipRepo) Get(_ context.Context, id string) (*memberships.Membership, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	m, ok := mr.memberships[id]
	if !ok {
		return nil, memberships.ErrNotFound
	}
	return &m, nil
}

func (mr *FakeMembershipRepo) GetByUserAndOrg(_ context.Context, userID, orgID string) (*memberships.Membership, error) {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	for _, m := range mr.memberships {
		if m.UserID == userID && m.OrganizationID == orgID {
			return &m, nil
		}
	}
	return nil, memberships.ErrNotFound
}

func (mr *FakeMembershipRepo) ListByUser(_ context.Context, userID string) ([]memberships.Membership, error) {
	return mr.list(func(m memberships.Membership) bool { return m.UserID == userID }), nil
}

func (mr *FakeMembershipRepo) ListByOrg(_ context.Context, orgID string) ([]memberships.Membership, error) {
	return mr.list(func(m memberships.Membership) bool { return m.OrganizationID == orgID }), nil
}

func (mr *FakeMembershipRepo) UpdateRole(_ context.Context, id, role string) (*memberships.Membership, error) {
	return mr.update(id, func(m *memberships.Membership) { m.Role = role })
}

func (mr *FakeMembershipRepo) SetStatus(_ context.Context, id string, status memberships.Status) (*memberships.Membership, error) {
	return mr.update(id, func(m *memberships.Membership) { m.Status = status })
}

func (mr *FakeMembershipRepo) Delete(_ context.Context, id string) error {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	if _, ok := mr.memberships[id]; !ok {
		return memberships.ErrNotFound
	}
	delete(mr.memberships, id)
	return nil
}

func (mr *FakeMembershipRepo) update(id string, mutate func(*memberships.Membership)) (*memberships.Membership, error) {
	mr.lock.Lock()
	defer mr.lock.Unlock()

	m, ok := mr.memberships[id]
	if !ok {
		return nil, memberships.ErrNotFound
	}
	mutate(&m)
	m.UpdatedAt = time.Now().UTC()
	mr.memberships[id] = m
	return &m, nil
}

// list returns matches ordered by creation time so callers see a stable order.
func (mr *FakeMembershipRepo) list(match func(memberships.Membership) bool) []memberships.Membership {
	mr.lock.RLock()
	defer mr.lock.RUnlock()

	result := make([]memberships.Membership, 0)
	for _, m := range mr.memberships {
		if match(m) {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
