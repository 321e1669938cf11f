package repository

import (
	"context"

	"github.com/storynest/storynest/client/internal/api"
	"github.com/storynest/storynest/client/internal/codec"
	"github.com/storynest/storynest/client/internal/types"
)

// StoryRepository serves stories. Lists are owned by a kid; pending review
// lists are owned by the parent. Safe for concurrent use.
type StoryRepository struct {
	d api.Doer
	s *store[types.Story]
}

// NewStories builds a StoryRepository over d.
func NewStories(d api.Doer, o Options) *StoryRepository {
	o = o.withDefaults()
	return &StoryRepository{d: d, s: newStore[types.Story](codec.ResourceStories, o)}
}

// ListForOwner returns the stories of kidID.
func (r *StoryRepository) ListForOwner(ctx context.Context, kidID string) ([]types.Story, error) {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return nil, err
	}
	return r.s.readList(ctx, listPrefix+kidID, func(c context.Context) ([]types.Story, error) {
		return api.ListStories(c, r.d, kidID)
	})
}

// ListPending returns the stories awaiting review by userID.
func (r *StoryRepository) ListPending(ctx context.Context, userID string) ([]types.Story, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}
	return r.s.readList(ctx, pendingPrefix+userID, func(c context.Context) ([]types.Story, error) {
		return api.ListPendingStories(c, r.d, userID)
	})
}

// Get returns one story.
func (r *StoryRepository) Get(ctx context.Context, storyID string) (types.Story, error) {
	if err := types.ValidateIDPresent(storyID, "storyId"); err != nil {
		return types.Story{}, err
	}
	return r.s.readItem(ctx, storyID, func(c context.Context) (types.Story, error) {
		return api.GetStory(c, r.d, storyID)
	})
}

// Generate creates a story for req.KidID. The kid's list and every pending
// list are dropped; the new story is not spliced into them.
func (r *StoryRepository) Generate(ctx context.Context, req types.GenerateStoryRequest) (types.Story, error) {
	st, err := api.GenerateStory(ctx, r.d, req)
	if err != nil {
		return types.Story{}, err
	}
	r.s.afterCreate([]string{req.KidID, st.KidID}, pendingPrefix)
	return st, nil
}

// Update applies a partial update of the editable fields.
func (r *StoryRepository) Update(ctx context.Context, storyID string, req types.UpdateStoryRequest) (types.Story, error) {
	st, err := api.UpdateStory(ctx, r.d, storyID, req)
	if err != nil {
		return types.Story{}, err
	}
	r.s.afterWrite(storyID, st, st.KidID, pendingPrefix)
	return st, nil
}

// ToggleFavourite sets the favourite flag of a story.
func (r *StoryRepository) ToggleFavourite(ctx context.Context, storyID string, favourite bool) (types.Story, error) {
	st, err := api.SetFavourite(ctx, r.d, storyID, favourite)
	if err != nil {
		return types.Story{}, err
	}
	r.s.afterWrite(storyID, st, st.KidID, pendingPrefix)
	return st, nil
}

// Delete removes a story and drops every cached story list.
func (r *StoryRepository) Delete(ctx context.Context, storyID string) error {
	if err := api.DeleteStory(ctx, r.d, storyID); err != nil {
		return err
	}
	r.s.afterDelete(storyID, pendingPrefix)
	return nil
}

// ClearCache drops every cached story entry.
func (r *StoryRepository) ClearCache() { r.s.clear() }

// ClearOwnerCache drops the cached story list of kidID.
func (r *StoryRepository) ClearOwnerCache(kidID string) { r.s.dropList(listPrefix + kidID) }

// ClearKidCache drops everything cached about kidID's stories: its list,
// every cached story of that kid, and every pending list, which may hold them.
func (r *StoryRepository) ClearKidCache(kidID string) {
	r.s.dropOwned(listPrefix+kidID, func(st types.Story) bool { return st.KidID == kidID }, pendingPrefix)
}

// ClearEntityCache drops the cached story storyID.
func (r *StoryRepository) ClearEntityCache(storyID string) { r.s.dropItem(storyID) }
