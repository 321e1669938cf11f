// Package fakeapi is an in-memory stand-in for the storytelling backend. It
// serves the same HTTP surface the SDK consumes and lets tests force status
// codes per route, add latency, and count requests.
package fakeapi

import (
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/storynest/storynest/client/internal/types"
)

// Route names, usable with Force and Requests.
const (
	RouteListKids      = "listKids"
	RouteCreateKid     = "createKid"
	RouteGetKid        = "getKid"
	RouteUpdateKid     = "updateKid"
	RouteDeleteKid     = "deleteKid"
	RouteListStories   = "listStories"
	RouteListPending   = "listPending"
	RouteGenerateStory = "generateStory"
	RouteGetStory      = "getStory"
	RouteUpdateStory   = "updateStory"
	RouteDeleteStory   = "deleteStory"
	RouteFavourite     = "favouriteStory"
)

// Server is an http.Handler. The zero value is not usable; call New.
type Server struct {
	router *mux.Router
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	kids     map[string]types.Kid
	stories  map[string]types.Story
	order    []string // story IDs in creation order
	kidOrder []string
	forced   map[string]forcedReply
	counts   map[string]int
	total    int
	delay    time.Duration
	tokens   map[string]bool
	lastAuth string
}

type forcedReply struct {
	status int
	body   string
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for created_at.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(fn func() string) Option { return func(s *Server) { s.newID = fn } }

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

// WithTokens makes every route require "Authorization: Bearer <token>" with
// one of the given tokens.
func WithTokens(tokens ...string) Option {
	return func(s *Server) {
		for _, t := range tokens {
			s.tokens[t] = true
		}
	}
}

// New builds an empty backend.
func New(opts ...Option) *Server {
	s := &Server{
		log:     zerolog.Nop(),
		now:     time.Now,
		newID:   uuid.NewString,
		kids:    map[string]types.Kid{},
		stories: map[string]types.Story{},
		forced:  map[string]forcedReply{},
		counts:  map[string]int{},
		tokens:  map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.instrument)

	r.HandleFunc("/kids/user/{userId}", s.listKids).Methods(http.MethodGet).Name(RouteListKids)
	r.HandleFunc("/kids", s.createKid).Methods(http.MethodPost).Name(RouteCreateKid)
	r.HandleFunc("/kids/{kidId}", s.getKid).Methods(http.MethodGet).Name(RouteGetKid)
	r.HandleFunc("/kids/{kidId}", s.updateKid).Methods(http.MethodPut).Name(RouteUpdateKid)
	r.HandleFunc("/kids/{kidId}", s.deleteKid).Methods(http.MethodDelete).Name(RouteDeleteKid)

	r.HandleFunc("/stories/kid/{kidId}", s.listStories).Methods(http.MethodGet).Name(RouteListStories)
	r.HandleFunc("/stories", s.listPending).Methods(http.MethodGet).Name(RouteListPending)
	r.HandleFunc("/stories/generate", s.generateStory).Methods(http.MethodPost).Name(RouteGenerateStory)
	r.HandleFunc("/stories/{storyId}/favourite", s.favourite).Methods(http.MethodPut).Name(RouteFavourite)
	r.HandleFunc("/stories/{storyId}", s.getStory).Methods(http.MethodGet).Name(RouteGetStory)
	r.HandleFunc("/stories/{storyId}", s.updateStory).Methods(http.MethodPut).Name(RouteUpdateStory)
	r.HandleFunc("/stories/{storyId}", s.deleteStory).Methods(http.MethodDelete).Name(RouteDeleteStory)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Force makes route answer status (with body as free text) until Reset.
func (s *Server) Force(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[route] = forcedReply{status: status, body: body}
}

// Unforce restores normal handling of route.
func (s *Server) Unforce(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forced, route)
}

// SetDelay adds latency to every request.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Reset clears forced replies, latency and counters. Stored data is kept.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = map[string]forcedReply{}
	s.counts = map[string]int{}
	s.total = 0
	s.delay = 0
}

// Requests returns how many requests matched route.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// TotalRequests returns the number of requests that reached the server.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// LastAuthorization returns the Authorization header of the latest request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		auth := r.Header.Get("Authorization")

		s.mu.Lock()
		s.counts[name]++
		s.total++
		s.lastAuth = auth
		delay := s.delay
		forced, isForced := s.forced[name]
		requireAuth := len(s.tokens) > 0
		authorized := s.tokens[strings.TrimPrefix(auth, "Bearer ")]
		s.mu.Unlock()

		s.log.Debug().Str("route", name).Str("method", r.Method).Str("path", r.URL.RequestURI()).
			Str("request_id", r.Header.Get("X-Request-ID")).Msg("fakeapi request")

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if requireAuth && !authorized {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		if isForced {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(forced.status)
			_, _ = w.Write([]byte(forced.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("method", r.Method).Str("url", r.URL.String()).
					Bytes("stack", debug.Stack()).Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
