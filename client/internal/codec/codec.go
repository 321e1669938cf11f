// Package codec maps the backend's JSON documents to domain records and back.
// Decoding is strict about required fields and timestamps; encoding only
// emits the fields a caller actually supplied.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"

	apierrors "github.com/storynest/storynest/client/internal/errors"
	"github.com/storynest/storynest/client/internal/types"
)

const (
	ResourceKids    = "kids"
	ResourceStories = "stories"
)

var errMissing = errors.New("required field missing")

type kidWire struct {
	ID                    *string  `json:"id"`
	UserID                *string  `json:"user_id"`
	Name                  *string  `json:"name"`
	Age                   *int     `json:"age"`
	Gender                *string  `json:"gender"`
	AvatarType            *string  `json:"avatar_type"`
	AppearanceDescription *string  `json:"appearance_description"`
	FavoriteGenres        []string `json:"favorite_genres"`
	ParentNotes           *string  `json:"parent_notes"`
	PreferredLanguage     *string  `json:"preferred_language"`
	CreatedAt             *string  `json:"created_at"`
}

type storyWire struct {
	ID          *string `json:"id"`
	KidID       *string `json:"kid_id"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	Status      *string `json:"status"`
	ChildName   *string `json:"child_name"`
	ImageURL    *string `json:"image_url"`
	CreatedAt   *string `json:"created_at"`
	IsFavourite *bool   `json:"is_favourite"`
}

type kidList struct {
	Kids []json.RawMessage `json:"kids"`
}

type storyList struct {
	Stories []json.RawMessage `json:"stories"`
}

// DecodeKid decodes a single kid object.
func DecodeKid(raw []byte) (types.Kid, error) {
	var w kidWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Kid{}, &apierrors.DecodeError{Resource: ResourceKids, Err: err}
	}
	if w.ID == nil || *w.ID == "" {
		return types.Kid{}, &apierrors.DecodeError{Resource: ResourceKids, Field: "id", Err: errMissing}
	}
	if w.Name == nil || *w.Name == "" {
		return types.Kid{}, &apierrors.DecodeError{Resource: ResourceKids, Field: "name", Err: errMissing}
	}
	created, err := parseTime(ResourceKids, w.CreatedAt)
	if err != nil {
		return types.Kid{}, err
	}
	k := types.Kid{
		ID:                    *w.ID,
		Name:                  *w.Name,
		Age:                   w.Age,
		Gender:                w.Gender,
		AvatarType:            w.AvatarType,
		AppearanceDescription: w.AppearanceDescription,
		FavoriteGenres:        w.FavoriteGenres,
		ParentNotes:           w.ParentNotes,
		PreferredLanguage:     w.PreferredLanguage,
		CreatedAt:             created,
	}
	if w.UserID != nil {
		k.UserID = *w.UserID
	}
	return k, nil
}

// DecodeStory decodes a single story object.
func DecodeStory(raw []byte) (types.Story, error) {
	var w storyWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Story{}, &apierrors.DecodeError{Resource: ResourceStories, Err: err}
	}
	if w.ID == nil || *w.ID == "" {
		return types.Story{}, &apierrors.DecodeError{Resource: ResourceStories, Field: "id", Err: errMissing}
	}
	if w.Title == nil {
		return types.Story{}, &apierrors.DecodeError{Resource: ResourceStories, Field: "title", Err: errMissing}
	}
	created, err := parseTime(ResourceStories, w.CreatedAt)
	if err != nil {
		return types.Story{}, err
	}
	s := types.Story{
		ID:        *w.ID,
		Title:     *w.Title,
		ChildName: w.ChildName,
		ImageURL:  w.ImageURL,
		CreatedAt: created,
	}
	if w.KidID != nil {
		s.KidID = *w.KidID
	}
	if w.Content != nil {
		s.Content = *w.Content
	}
	if w.Status != nil {
		s.Status = types.StoryStatus(*w.Status)
	}
	if w.IsFavourite != nil {
		s.IsFavourite = *w.IsFavourite
	}
	return s, nil
}

// DecodeKidList decodes {"kids": [...]}. A missing key yields an empty list.
func DecodeKidList(raw []byte) ([]types.Kid, error) {
	var l kidList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, &apierrors.DecodeError{Resource: ResourceKids, Err: err}
	}
	out := make([]types.Kid, 0, len(l.Kids))
	for i, item := range l.Kids {
		k, err := DecodeKid(item)
		if err != nil {
			return nil, fmt.Errorf("kids[%d]: %w", i, err)
		}
		out = append(out, k)
	}
	return out, nil
}

// DecodeStoryList decodes {"stories": [...]}. A missing key yields an empty list.
func DecodeStoryList(raw []byte) ([]types.Story, error) {
	var l storyList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, &apierrors.DecodeError{Resource: ResourceStories, Err: err}
	}
	out := make([]types.Story, 0, len(l.Stories))
	for i, item := range l.Stories {
		s, err := DecodeStory(item)
		if err != nil {
			return nil, fmt.Errorf("stories[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseTime(resource string, v *string) (time.Time, error) {
	if v == nil || *v == "" {
		return time.Time{}, nil
	}
	dt, err := strfmt.ParseDateTime(*v)
	if err != nil {
		return time.Time{}, &apierrors.DecodeError{Resource: resource, Field: "created_at", Err: err}
	}
	return time.Time(dt).UTC(), nil
}
