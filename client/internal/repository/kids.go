package repository

import (
	"context"

	"github.com/storynest/storynest/client/internal/api"
	"github.com/storynest/storynest/client/internal/codec"
	"github.com/storynest/storynest/client/internal/types"
)

// KidRepository serves kid profiles. Safe for concurrent use.
type KidRepository struct {
	d api.Doer
	s *store[types.Kid]
}

// NewKids builds a KidRepository over d.
func NewKids(d api.Doer, o Options) *KidRepository {
	o = o.withDefaults()
	return &KidRepository{d: d, s: newStore[types.Kid](codec.ResourceKids, o)}
}

// ListForOwner returns the kids owned by userID.
func (r *KidRepository) ListForOwner(ctx context.Context, userID string) ([]types.Kid, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}
	return r.s.readList(ctx, listPrefix+userID, func(c context.Context) ([]types.Kid, error) {
		return api.ListKids(c, r.d, userID)
	})
}

// Get returns one kid profile.
func (r *KidRepository) Get(ctx context.Context, kidID string) (types.Kid, error) {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return types.Kid{}, err
	}
	return r.s.readItem(ctx, kidID, func(c context.Context) (types.Kid, error) {
		return api.GetKid(c, r.d, kidID)
	})
}

// Create registers a kid and drops the owner's cached list. The new kid is
// not spliced into any cached list.
func (r *KidRepository) Create(ctx context.Context, req types.CreateKidRequest) (types.Kid, error) {
	k, err := api.CreateKid(ctx, r.d, req)
	if err != nil {
		return types.Kid{}, err
	}
	r.s.afterCreate([]string{req.UserID, k.UserID})
	return k, nil
}

// Update applies a partial update.
func (r *KidRepository) Update(ctx context.Context, kidID string, req types.UpdateKidRequest) (types.Kid, error) {
	k, err := api.UpdateKid(ctx, r.d, kidID, req)
	if err != nil {
		return types.Kid{}, err
	}
	r.s.afterWrite(kidID, k, k.UserID)
	return k, nil
}

// Delete removes a kid. Every cached kid list is dropped since the owner is
// not known here.
func (r *KidRepository) Delete(ctx context.Context, kidID string) error {
	if err := api.DeleteKid(ctx, r.d, kidID); err != nil {
		return err
	}
	r.s.afterDelete(kidID)
	return nil
}

// ClearCache drops every cached kid entry.
func (r *KidRepository) ClearCache() { r.s.clear() }

// ClearOwnerCache drops the cached list of userID.
func (r *KidRepository) ClearOwnerCache(userID string) { r.s.dropList(listPrefix + userID) }

// ClearEntityCache drops the cached profile of kidID.
func (r *KidRepository) ClearEntityCache(kidID string) { r.s.dropItem(kidID) }
