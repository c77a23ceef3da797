package invitationrepofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-auth/invitations"
)

var _ invitations.Repo = (*FakeInvitationRepo)(nil)

type FakeInvitationRepo struct {
	invitations map[string]invitations.Invitation
	lock        sync.RWMutex
}

func NewFakeInvitationRepo() *FakeInvitationRepo {
	return &FakeInvitationRepo{
		invitations: make(map[string]invitations.Invitation),
	}
}

func (ir *FakeInvitationRepo) Create(_ context.Context, inv *invitations.Invitation) error {
	ir.lock.Lock()
	defer ir.lock.Unlock()
	if inv.ID == "" {
		inv.ID = "inv_" + uuid.New().String()
	}
	ir.invitations[inv.ID] = *inv
	return nil
}

func (ir *FakeInvitationRepo) Update(_ context.Context, inv *invitations.Invitation) error {
	ir.lock.Lock()
	defer ir.lock.Unlock()
	if _, ok := ir.invitations[inv.ID]; !ok {
		return invitations.ErrNotFound
	}
	ir.invitations[inv.ID] = *inv
	return nil
}

func (ir *FakeInvitationRepo) Get(_ context.Context, id string) (*invitations.Invitation, error) {
	ir.lock.RLock()
	defer ir.lock.RUnlock()
	inv, ok := ir.invitations[id]
	if !ok {
		return nil, invitations.ErrNotFound
	}
	return &inv, nil
}

func (ir *FakeInvitationRepo) GetByToken(_ context.Context, token string) (*invitations.Invitation, error) {
	ir.lock.RLock()
	defer ir.lock.RUnlock()
	for _, inv := range ir.invitations {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, invitations.ErrNotFound
}

func (ir *FakeInvitationRepo) ListByOrg(_ context.Context, orgID string) ([]invitations.Invitation, error) {
	ir.lock.RLock()
	defer ir.lock.RUnlock()
	result := make([]invitations.Invitation, 0)
	for _, inv := range ir.invitations {
		if inv.OrganizationID == orgID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
