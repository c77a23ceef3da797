package sessions

import "context"

// Repo stores sessions by token hash. Implementations must treat Get on an expired
// record the same as a missing one only if they evict on expiry; callers still check Expired.
type Repo interface {
	Create(ctx context.Context, session *Session) error
	Update(ctx context.Context, session *Session) error
	Get(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID string) error
}
