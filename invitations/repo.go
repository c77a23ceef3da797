package invitations

import "context"

type Repo interface {
	Create(ctx context.Context, invitation *Invitation) error
	Update(ctx context.Context, invitation *Invitation) error
	Get(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	ListByOrg(ctx context.Context, orgID string) ([]Invitation, error)
}
