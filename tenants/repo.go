package tenants

import "context"

type Repo interface {
	Create(ctx context.Context, org *Organization) error
	Update(ctx context.Context, org *Organization) error
	Get(ctx context.Context, orgID string) (*Organization, error)
	Delete(ctx context.Context, orgID string) error
}
