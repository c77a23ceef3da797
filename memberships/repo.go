package memberships

import "context"

type Repo interface {
	Create(ctx context.Context, membership *Membership) error
	Get(ctx context.Context, id string) (*Membership, error)
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*Membership, error)
	ListByUser(ctx context.Context, userID string) ([]Membership, error)
	ListByOrg(ctx context.Context, orgID string) ([]Membership, error)
	UpdateRole(ctx context.Context, id, role string) (*Membership, error)
	SetStatus(ctx context.Context, id string, status Status) (*Membership, error)
	Delete(ctx context.Context, id string) error
}
