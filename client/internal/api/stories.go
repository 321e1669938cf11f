package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/storynest/storynest/client/internal/codec"
	apierrors "github.com/storynest/storynest/client/internal/errors"
	"github.com/storynest/storynest/client/internal/types"
)

// ListStories returns the stories written for kidID.
func ListStories(ctx context.Context, d Doer, kidID string) ([]types.Story, error) {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/stories/kid/%s", url.PathEscape(kidID))
	body, err := call(ctx, d, apierrors.OpFetch, codec.ResourceStories, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeStoryList(body)
}

// ListPendingStories returns the stories awaiting parent review for userID.
func ListPendingStories(ctx context.Context, d Doer, userID string) ([]types.Story, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("status", string(types.StoryPending))
	q.Set("user_id", userID)
	body, err := call(ctx, d, apierrors.OpFetch, codec.ResourceStories, http.MethodGet, "/stories?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeStoryList(body)
}

// GetStory retrieves a single story.
func GetStory(ctx context.Context, d Doer, storyID string) (types.Story, error) {
	if err := types.ValidateIDPresent(storyID, "storyId"); err != nil {
		return types.Story{}, err
	}
	body, err := call(ctx, d, apierrors.OpFetch, codec.ResourceStories, http.MethodGet, itemPath(codec.ResourceStories, storyID), nil)
	if err != nil {
		return types.Story{}, err
	}
	return codec.DecodeStory(body)
}

// GenerateStory asks the backend to write a story. Generation happens
// server-side, so this call can take a while; any 2xx is accepted.
func GenerateStory(ctx context.Context, d Doer, req types.GenerateStoryRequest) (types.Story, error) {
	if err := types.ValidateGenerateStory(req); err != nil {
		return types.Story{}, err
	}
	payload, err := codec.EncodeGenerateStory(req)
	if err != nil {
		return types.Story{}, err
	}
	body, err := call(ctx, d, apierrors.OpCreate, codec.ResourceStories, http.MethodPost, "/stories/generate", payload)
	if err != nil {
		return types.Story{}, err
	}
	return codec.DecodeStory(body)
}

// UpdateStory sends only the supplied fields of req.
func UpdateStory(ctx context.Context, d Doer, storyID string, req types.UpdateStoryRequest) (types.Story, error) {
	if err := types.ValidateIDPresent(storyID, "storyId"); err != nil {
		return types.Story{}, err
	}
	if err := types.ValidateUpdateStory(req); err != nil {
		return types.Story{}, err
	}
	payload, err := codec.EncodeUpdateStory(req)
	if err != nil {
		return types.Story{}, err
	}
	body, err := call(ctx, d, apierrors.OpUpdate, codec.ResourceStories, http.MethodPut, itemPath(codec.ResourceStories, storyID), payload)
	if err != nil {
		return types.Story{}, err
	}
	return codec.DecodeStory(body)
}

// SetFavourite marks or unmarks a story as a favourite.
func SetFavourite(ctx context.Context, d Doer, storyID string, favourite bool) (types.Story, error) {
	if err := types.ValidateIDPresent(storyID, "storyId"); err != nil {
		return types.Story{}, err
	}
	payload, err := codec.EncodeFavourite(favourite)
	if err != nil {
		return types.Story{}, err
	}
	path := itemPath(codec.ResourceStories, storyID) + "/favourite"
	body, err := call(ctx, d, apierrors.OpUpdate, codec.ResourceStories, http.MethodPut, path, payload)
	if err != nil {
		return types.Story{}, err
	}
	return codec.DecodeStory(body)
}

// DeleteStory removes a story.
func DeleteStory(ctx context.Context, d Doer, storyID string) error {
	if err := types.ValidateIDPresent(storyID, "storyId"); err != nil {
		return err
	}
	_, err := call(ctx, d, apierrors.OpDelete, codec.ResourceStories, http.MethodDelete, itemPath(codec.ResourceStories, storyID), nil)
	return err
}
