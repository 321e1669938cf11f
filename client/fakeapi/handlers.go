package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/storynest/storynest/client/internal/codec"
	"github.com/storynest/storynest/client/internal/types"
)

// SeedKid stores k as-is, assigning an ID and timestamp when missing.
func (s *Server) SeedKid(k types.Kid) types.Kid {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = s.newID()
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = s.now().UTC()
	}
	if _, ok := s.kids[k.ID]; !ok {
		s.kidOrder = append(s.kidOrder, k.ID)
	}
	s.kids[k.ID] = k
	return k
}

// SeedStory stores st as-is, assigning an ID and timestamp when missing.
func (s *Server) SeedStory(st types.Story) types.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == "" {
		st.ID = s.newID()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = s.now().UTC()
	}
	if _, ok := s.stories[st.ID]; !ok {
		s.order = append(s.order, st.ID)
	}
	s.stories[st.ID] = st
	return st
}

// ------------------------- kids -------------------------

// GET /kids/user/{userId}
func (s *Server) listKids(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	out := make([]json.RawMessage, 0)
	for _, id := range s.kidOrder {
		if k, ok := s.kids[id]; ok && k.UserID == userID {
			out = append(out, mustEncode(codec.EncodeKid(k)))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"kids": out})
}

// POST /kids
func (s *Server) createKid(w http.ResponseWriter, r *http.Request) {
	var req types.CreateKidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := types.ValidateCreateKid(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	k := s.SeedKid(types.Kid{
		UserID:                req.UserID,
		Name:                  req.Name,
		Age:                   req.Age,
		Gender:                req.Gender,
		AvatarType:            req.AvatarType,
		AppearanceDescription: req.AppearanceDescription,
		FavoriteGenres:        req.FavoriteGenres,
		ParentNotes:           req.ParentNotes,
		PreferredLanguage:     req.PreferredLanguage,
	})
	writeRaw(w, http.StatusCreated, mustEncode(codec.EncodeKid(k)))
}

// GET /kids/{kidId}
func (s *Server) getKid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["kidId"]
	s.mu.Lock()
	k, ok := s.kids[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	writeRaw(w, http.StatusOK, mustEncode(codec.EncodeKid(k)))
}

// PUT /kids/{kidId}
func (s *Server) updateKid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["kidId"]
	var req types.UpdateKidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.mu.Lock()
	k, ok := s.kids[id]
	if ok {
		if req.Name != nil {
			k.Name = *req.Name
		}
		if req.Age != nil {
			k.Age = req.Age
		}
		if req.Gender != nil {
			k.Gender = req.Gender
		}
		if req.AvatarType != nil {
			k.AvatarType = req.AvatarType
		}
		if req.AppearanceDescription != nil {
			k.AppearanceDescription = req.AppearanceDescription
		}
		if req.FavoriteGenres != nil {
			k.FavoriteGenres = *req.FavoriteGenres
		}
		if req.ParentNotes != nil {
			k.ParentNotes = req.ParentNotes
		}
		if req.PreferredLanguage != nil {
			k.PreferredLanguage = req.PreferredLanguage
		}
		s.kids[id] = k
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	writeRaw(w, http.StatusOK, mustEncode(codec.EncodeKid(k)))
}

// DELETE /kids/{kidId} also removes the kid's stories.
func (s *Server) deleteKid(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["kidId"]
	s.mu.Lock()
	_, ok := s.kids[id]
	if ok {
		delete(s.kids, id)
		for sid, st := range s.stories {
			if st.KidID == id {
				delete(s.stories, sid)
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ------------------------- stories -------------------------

// GET /stories/kid/{kidId}
func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	kidID := mux.Vars(r)["kidId"]
	s.writeStories(w, func(st types.Story) bool { return st.KidID == kidID })
}

// GET /stories?status=pending&user_id={userId}
func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	status := types.StoryStatus(q.Get("status"))
	s.mu.Lock()
	owned := map[string]bool{}
	for id, k := range s.kids {
		if k.UserID == userID {
			owned[id] = true
		}
	}
	s.mu.Unlock()
	s.writeStories(w, func(st types.Story) bool {
		return owned[st.KidID] && (status == "" || st.Status == status)
	})
}

func (s *Server) writeStories(w http.ResponseWriter, keep func(types.Story) bool) {
	s.mu.Lock()
	out := make([]json.RawMessage, 0)
	for _, id := range s.order {
		if st, ok := s.stories[id]; ok && keep(st) {
			out = append(out, mustEncode(codec.EncodeStory(st)))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"stories": out})
}

// POST /stories/generate
func (s *Server) generateStory(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := types.ValidateGenerateStory(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	kid, ok := s.kids[req.KidID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	genre := "bedtime"
	if req.Genre != nil && *req.Genre != "" {
		genre = *req.Genre
	}
	content := fmt.Sprintf("Once upon a time, %s went on a %s adventure.", kid.Name, genre)
	if req.Prompt != nil && *req.Prompt != "" {
		content += " " + strings.TrimSpace(*req.Prompt)
	}
	name := kid.Name
	st := s.SeedStory(types.Story{
		KidID:     kid.ID,
		Title:     fmt.Sprintf("%s and the %s tale", kid.Name, genre),
		Content:   content,
		Status:    types.StoryPending,
		ChildName: &name,
	})
	writeRaw(w, http.StatusCreated, mustEncode(codec.EncodeStory(st)))
}

// GET /stories/{storyId}
func (s *Server) getStory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["storyId"]
	s.mu.Lock()
	st, ok := s.stories[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}
	writeRaw(w, http.StatusOK, mustEncode(codec.EncodeStory(st)))
}

// PUT /stories/{storyId}
func (s *Server) updateStory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["storyId"]
	var req types.UpdateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.mu.Lock()
	st, ok := s.stories[id]
	if ok {
		if req.Title != nil {
			st.Title = *req.Title
		}
		if req.Content != nil {
			st.Content = *req.Content
		}
		if req.ImageURL != nil {
			st.ImageURL = req.ImageURL
		}
		s.stories[id] = st
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}
	writeRaw(w, http.StatusOK, mustEncode(codec.EncodeStory(st)))
}

// PUT /stories/{storyId}/favourite
func (s *Server) favourite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["storyId"]
	var req types.FavouriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.mu.Lock()
	st, ok := s.stories[id]
	if ok {
		st.IsFavourite = req.IsFavourite
		s.stories[id] = st
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}
	writeRaw(w, http.StatusOK, mustEncode(codec.EncodeStory(st)))
}

// DELETE /stories/{storyId}
func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["storyId"]
	s.mu.Lock()
	_, ok := s.stories[id]
	delete(s.stories, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "story not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
