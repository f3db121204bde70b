package repository

import (
	"context"

	"classroom-ai-platform/internal/domain/model"
)

type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Session, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

// SessionCache is the soft layer over the session store. It is a
// performance optimization only: validity decisions must hold with a nil
// cache, and Invalidate must be called before the store record is
// deleted so a deleted session can never be observed as valid.
type SessionCache interface {
	Get(ctx context.Context, token string) (*model.Session, bool)
	Set(ctx context.Context, s *model.Session)
	Invalidate(ctx context.Context, token string)
}
