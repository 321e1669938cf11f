package client

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultParentUnlockWindow is how long a correct PIN keeps the parent area open.
const DefaultParentUnlockWindow = 5 * time.Minute

var (
	// ErrNotSignedIn is returned by operations that need a signed-in parent.
	ErrNotSignedIn = errors.New("no user signed in")
	// ErrInvalidPIN reports a PIN that is not exactly four digits.
	ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")
	// ErrNoParentPIN is returned by UnlockParent before a PIN was set.
	ErrNoParentPIN = errors.New("no parent PIN set")
	// ErrIncorrectPIN is returned by UnlockParent on a mismatch.
	ErrIncorrectPIN = errors.New("incorrect PIN")
)

// Session holds the signed-in parent, the kid currently using the app and
// the parent-area lock. Safe for concurrent use.
type Session struct {
	now      func() time.Time
	window   time.Duration
	pinCost  int
	onLogout func()

	mu            sync.RWMutex
	userID        string
	token         string
	selectedKid   string
	pinHash       []byte
	unlockedUntil time.Time
}

func newSession(now func() time.Time, window time.Duration, onLogout func()) *Session {
	if window <= 0 {
		window = DefaultParentUnlockWindow
	}
	return &Session{now: now, window: window, pinCost: bcrypt.DefaultCost, onLogout: onLogout}
}

// SignIn records the parent account and its bearer token. The token replaces
// the API key on every following request.
func (s *Session) SignIn(userID, token string) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.token = token
	return nil
}

// SignOut forgets the user, the selected kid and the parent PIN, and clears
// every repository cache.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.userID = ""
	s.token = ""
	s.selectedKid = ""
	s.pinHash = nil
	s.unlockedUntil = time.Time{}
	s.mu.Unlock()
	if s.onLogout != nil {
		s.onLogout()
	}
}

// UserID returns the signed-in parent, or "".
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Token returns the session bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignedIn reports whether a parent is signed in.
func (s *Session) SignedIn() bool { return s.UserID() != "" }

// SelectKid makes kidID the active profile. An empty ID clears the selection.
func (s *Session) SelectKid(kidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return ErrNotSignedIn
	}
	s.selectedKid = kidID
	return nil
}

// SelectedKid returns the active kid profile, or "".
func (s *Session) SelectedKid() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedKid
}

// SetParentPIN stores a bcrypt hash of pin and locks the parent area.
func (s *Session) SetParentPIN(pin string) error {
	if len(pin) != 4 || !isDigits(pin) {
		return ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.pinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinHash = hash
	s.unlockedUntil = time.Time{}
	return nil
}

// UnlockParent opens the parent area for the unlock window when pin matches.
func (s *Session) UnlockParent(pin string) error {
	s.mu.RLock()
	hash := s.pinHash
	s.mu.RUnlock()
	if hash == nil {
		return ErrNoParentPIN
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		return ErrIncorrectPIN
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlockedUntil = s.now().Add(s.window)
	return nil
}

// ParentUnlocked reports whether the parent area is currently open.
func (s *Session) ParentUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Before(s.unlockedUntil)
}

// LockParent closes the parent area immediately.
func (s *Session) LockParent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlockedUntil = time.Time{}
}

// bearer returns the credential for outgoing requests: the session token
// if present, otherwise apiKey.
func (s *Session) bearer(apiKey string) string {
	if t := s.Token(); t != "" {
		return t
	}
	return apiKey
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
