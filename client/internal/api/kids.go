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

// ListKids returns the kid profiles owned by userID.
func ListKids(ctx context.Context, d Doer, userID string) ([]types.Kid, error) {
	if err := types.ValidateIDPresent(userID, "userId"); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/kids/user/%s", url.PathEscape(userID))
	body, err := call(ctx, d, apierrors.OpFetch, codec.ResourceKids, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeKidList(body)
}

// GetKid retrieves a single kid profile.
func GetKid(ctx context.Context, d Doer, kidID string) (types.Kid, error) {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return types.Kid{}, err
	}
	body, err := call(ctx, d, apierrors.OpFetch, codec.ResourceKids, http.MethodGet, itemPath(codec.ResourceKids, kidID), nil)
	if err != nil {
		return types.Kid{}, err
	}
	return codec.DecodeKid(body)
}

// CreateKid registers a new kid profile. Any 2xx is accepted.
func CreateKid(ctx context.Context, d Doer, req types.CreateKidRequest) (types.Kid, error) {
	if err := types.ValidateCreateKid(req); err != nil {
		return types.Kid{}, err
	}
	payload, err := codec.EncodeCreateKid(req)
	if err != nil {
		return types.Kid{}, err
	}
	body, err := call(ctx, d, apierrors.OpCreate, codec.ResourceKids, http.MethodPost, "/kids", payload)
	if err != nil {
		return types.Kid{}, err
	}
	return codec.DecodeKid(body)
}

// UpdateKid sends only the supplied fields of req.
func UpdateKid(ctx context.Context, d Doer, kidID string, req types.UpdateKidRequest) (types.Kid, error) {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return types.Kid{}, err
	}
	if err := types.ValidateUpdateKid(req); err != nil {
		return types.Kid{}, err
	}
	payload, err := codec.EncodeUpdateKid(req)
	if err != nil {
		return types.Kid{}, err
	}
	body, err := call(ctx, d, apierrors.OpUpdate, codec.ResourceKids, http.MethodPut, itemPath(codec.ResourceKids, kidID), payload)
	if err != nil {
		return types.Kid{}, err
	}
	return codec.DecodeKid(body)
}

// DeleteKid removes a kid profile.
func DeleteKid(ctx context.Context, d Doer, kidID string) error {
	if err := types.ValidateIDPresent(kidID, "kidId"); err != nil {
		return err
	}
	_, err := call(ctx, d, apierrors.OpDelete, codec.ResourceKids, http.MethodDelete, itemPath(codec.ResourceKids, kidID), nil)
	return err
}
