package verification

import "context"

// Repo keeps at most one challenge per (purpose, subject). Put replaces any earlier one.
type Repo interface {
	Put(ctx context.Context, challenge *Challenge) error
	Get(ctx context.Context, purpose Purpose, subject string) (*Challenge, error)
	IncrementAttempts(ctx context.Context, purpose Purpose, subject string) (int, error)
	Delete(ctx context.Context, purpose Purpose, subject string) error
}
