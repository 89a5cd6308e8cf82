package forum

import (
	"context"
	"errors"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

// Gate decides whether a caller may modify a group, post or comment. Only the
// recorded owner may; for everybody else, and for targets that do not exist,
// the answer is the same ErrForbidden so that existence is not revealed.
type Gate struct {
	owners interface {
		OwnerOf(ctx context.Context, target models.Target) (string, error)
	}
}

// NewGate creates a gate resolving owners through store.
func NewGate(store storage.Store) *Gate {
	return &Gate{owners: store}
}

// Authorize returns nil when uid owns target.
func (g *Gate) Authorize(ctx context.Context, uid string, target models.Target) error {
	if uid == "" {
		return ErrUnauthenticated
	}
	owner, err := g.owners.OwnerOf(ctx, target)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrForbidden
	case err != nil:
		return &StoreError{Op: "resolve owner", Err: err}
	case owner != uid:
		return ErrForbidden
	}
	return nil
}
