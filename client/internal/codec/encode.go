package codec

import (
	"encoding/json"
	"time"

	"github.com/storynest/storynest/client/internal/types"
)

// EncodeKid emits the set fields of k. id and created_at are included when
// present so a decoded record re-encodes to an equivalent document.
func EncodeKid(k types.Kid) ([]byte, error) {
	m := map[string]any{}
	putString(m, "id", k.ID)
	putString(m, "user_id", k.UserID)
	putString(m, "name", k.Name)
	putPtr(m, "age", k.Age)
	putPtr(m, "gender", k.Gender)
	putPtr(m, "avatar_type", k.AvatarType)
	putPtr(m, "appearance_description", k.AppearanceDescription)
	if k.FavoriteGenres != nil {
		m["favorite_genres"] = k.FavoriteGenres
	}
	putPtr(m, "parent_notes", k.ParentNotes)
	putPtr(m, "preferred_language", k.PreferredLanguage)
	putTime(m, "created_at", k.CreatedAt)
	return json.Marshal(m)
}

// EncodeStory emits the set fields of s. is_favourite is always present.
func EncodeStory(s types.Story) ([]byte, error) {
	m := map[string]any{"is_favourite": s.IsFavourite}
	putString(m, "id", s.ID)
	putString(m, "kid_id", s.KidID)
	m["title"] = s.Title
	putString(m, "content", s.Content)
	putString(m, "status", string(s.Status))
	putPtr(m, "child_name", s.ChildName)
	putPtr(m, "image_url", s.ImageURL)
	putTime(m, "created_at", s.CreatedAt)
	return json.Marshal(m)
}

// EncodeCreateKid encodes the required fields plus any supplied optional ones.
func EncodeCreateKid(req types.CreateKidRequest) ([]byte, error) { return json.Marshal(req) }

// EncodeUpdateKid encodes only the supplied fields.
func EncodeUpdateKid(req types.UpdateKidRequest) ([]byte, error) { return json.Marshal(req) }

// EncodeUpdateStory encodes only the supplied fields.
func EncodeUpdateStory(req types.UpdateStoryRequest) ([]byte, error) { return json.Marshal(req) }

// EncodeGenerateStory encodes a generation request.
func EncodeGenerateStory(req types.GenerateStoryRequest) ([]byte, error) { return json.Marshal(req) }

// EncodeFavourite encodes {"is_favourite": v}.
func EncodeFavourite(v bool) ([]byte, error) {
	return json.Marshal(types.FavouriteRequest{IsFavourite: v})
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putPtr[T any](m map[string]any, key string, v *T) {
	if v != nil {
		m[key] = *v
	}
}

func putTime(m map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		m[key] = t.UTC().Format(time.RFC3339Nano)
	}
}
