package types

// ------------------------------
// Request Types
// ------------------------------

// Nil pointer fields are "not supplied" and are never encoded.

// CreateKidRequest holds parameters for a new kid profile.
type CreateKidRequest struct {
	UserID                string   `json:"user_id"`
	Name                  string   `json:"name"`
	Age                   *int     `json:"age,omitempty"`
	Gender                *string  `json:"gender,omitempty"`
	AvatarType            *string  `json:"avatar_type,omitempty"`
	AppearanceDescription *string  `json:"appearance_description,omitempty"`
	FavoriteGenres        []string `json:"favorite_genres,omitempty"`
	ParentNotes           *string  `json:"parent_notes,omitempty"`
	PreferredLanguage     *string  `json:"preferred_language,omitempty"`
}

// UpdateKidRequest is a partial update. FavoriteGenres is a pointer so that
// an explicit empty list (clear) differs from "leave as is".
type UpdateKidRequest struct {
	Name                  *string   `json:"name,omitempty"`
	Age                   *int      `json:"age,omitempty"`
	Gender                *string   `json:"gender,omitempty"`
	AvatarType            *string   `json:"avatar_type,omitempty"`
	AppearanceDescription *string   `json:"appearance_description,omitempty"`
	FavoriteGenres        *[]string `json:"favorite_genres,omitempty"`
	ParentNotes           *string   `json:"parent_notes,omitempty"`
	PreferredLanguage     *string   `json:"preferred_language,omitempty"`
}

// Empty reports whether no field was supplied.
func (r UpdateKidRequest) Empty() bool {
	return r.Name == nil && r.Age == nil && r.Gender == nil && r.AvatarType == nil &&
		r.AppearanceDescription == nil && r.FavoriteGenres == nil && r.ParentNotes == nil &&
		r.PreferredLanguage == nil
}

// UpdateStoryRequest is a partial update of editable story fields.
type UpdateStoryRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Empty reports whether no field was supplied.
func (r UpdateStoryRequest) Empty() bool {
	return r.Title == nil && r.Content == nil && r.ImageURL == nil
}

// GenerateStoryRequest asks the backend to write a new story for a kid.
type GenerateStoryRequest struct {
	KidID    string  `json:"kid_id"`
	Prompt   *string `json:"prompt,omitempty"`
	Genre    *string `json:"genre,omitempty"`
	Language *string `json:"language,omitempty"`
	Length   *string `json:"length,omitempty"` // short | medium | long
}

// FavouriteRequest is the body of PUT /stories/{id}/favourite.
type FavouriteRequest struct {
	IsFavourite bool `json:"is_favourite"`
}
