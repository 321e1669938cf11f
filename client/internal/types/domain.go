package types

import (
	"slices"
	"time"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// Kid is a child profile owned by a parent account.
// ID and CreatedAt are assigned by the server and never sent by the client.
type Kid struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id,omitempty"`
	Name                  string    `json:"name"`
	Age                   *int      `json:"age,omitempty"`
	Gender                *string   `json:"gender,omitempty"`
	AvatarType            *string   `json:"avatar_type,omitempty"`
	AppearanceDescription *string   `json:"appearance_description,omitempty"`
	FavoriteGenres        []string  `json:"favorite_genres,omitempty"`
	ParentNotes           *string   `json:"parent_notes,omitempty"`
	PreferredLanguage     *string   `json:"preferred_language,omitempty"`
	CreatedAt             time.Time `json:"created_at,omitzero"`
}

// StoryStatus is the review state of a story. The set is owned by the server;
// unknown values are preserved verbatim.
type StoryStatus string

const (
	StoryPending  StoryStatus = "pending"
	StoryApproved StoryStatus = "approved"
	StoryDeclined StoryStatus = "declined"
)

// Story is a generated tale belonging to a Kid.
type Story struct {
	ID          string      `json:"id"`
	KidID       string      `json:"kid_id,omitempty"`
	Title       string      `json:"title"`
	Content     string      `json:"content,omitempty"`
	Status      StoryStatus `json:"status,omitempty"`
	ChildName   *string     `json:"child_name,omitempty"`
	ImageURL    *string     `json:"image_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
	IsFavourite bool        `json:"is_favourite"`
}

// Clone returns a copy of k that shares no pointers or slices with it.
func (k Kid) Clone() Kid {
	k.Age = clonePtr(k.Age)
	k.Gender = clonePtr(k.Gender)
	k.AvatarType = clonePtr(k.AvatarType)
	k.AppearanceDescription = clonePtr(k.AppearanceDescription)
	k.FavoriteGenres = slices.Clone(k.FavoriteGenres)
	k.ParentNotes = clonePtr(k.ParentNotes)
	k.PreferredLanguage = clonePtr(k.PreferredLanguage)
	return k
}

// Clone returns a copy of s that shares no pointers with it.
func (s Story) Clone() Story {
	s.ChildName = clonePtr(s.ChildName)
	s.ImageURL = clonePtr(s.ImageURL)
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
