package tenantrepofakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-auth/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]tenants.Organization
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]tenants.Organization),
	}
}

func (tr *FakeTenantRepo) Create(_ context.Context, org *tenants.Organization) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if org.ID == "" {
		org.ID = "org_" + uuid.New().String()
	}
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	tr.tenants[org.ID] = *org
	return nil
}

func (tr *FakeTenantRepo) Update(_ context.Context, org *tenants.Organization) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	existing, ok := tr.tenants[org.ID]
	if !ok {
		return tenants.ErrNotFound
	}
	org.CreatedAt = existing.CreatedAt
	org.UpdatedAt = time.Now().UTC()
	tr.tenants[org.ID] = *org
	return nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, orgID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	delete(tr.tenants, orgID)
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, orgID string) (*tenants.Organization, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	org, ok := tr.tenants[orgID]
	if !ok {
		return nil, tenants.ErrNotFound
	}
	return &org, nil
}
