package client

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mind-engage/classwork/internal/classwork"
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Clear() error { return m.Save("") }

// FileTokenStore keeps the token in a single file readable only by its owner.
type FileTokenStore struct {
	Path string
}

func (f FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token), 0o600)
}

func (f FileTokenStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Change is delivered to subscribers whenever the session signs in or out.
type Change struct {
	SignedIn bool
	User     *classwork.User
	// Forced is set when the server rejected the token.
	Forced bool
}

// Session holds the signed-in user's token. It is safe for concurrent use.
type Session struct {
	// storeMu serializes token changes with their persistence; taken
	// before mu.
	storeMu sync.Mutex
	mu      sync.Mutex
	token string
	user  *classwork.User
	store TokenStore
	subs  map[int]func(Change)
	next  int
}

// NewSession restores a previously saved token from store, if any.
func NewSession(store TokenStore) (*Session, error) {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{token: tok, store: store, subs: map[int]func(Change){}}, nil
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) User() *classwork.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) SignedIn() bool { return s.Token() != "" }

// Subscribe registers fn for session changes and returns a func that
// removes it.
func (s *Session) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) SignIn(token string, user *classwork.User) error {
	s.storeMu.Lock()
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	err := s.store.Save(token)
	s.storeMu.Unlock()
	s.notify(Change{SignedIn: true, User: user})
	return err
}

func (s *Session) setUser(u classwork.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Session) SignOut() error { return s.clear("", false) }

// ForceSignOut clears the token after the server rejected it.
func (s *Session) ForceSignOut() error { return s.clear("", true) }

// expire force-signs-out only if rejected is still the current token, so a
// late 401 cannot end a newer session.
func (s *Session) expire(rejected string) error {
	return s.clear(rejected, true)
}

func (s *Session) clear(onlyIf string, forced bool) error {
	s.storeMu.Lock()
	s.mu.Lock()
	if onlyIf != "" && s.token != onlyIf {
		s.mu.Unlock()
		s.storeMu.Unlock()
		return nil
	}
	had := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	err := s.store.Clear()
	s.storeMu.Unlock()
	if had || !forced {
		s.notify(Change{Forced: forced})
	}
	return err
}

func (s *Session) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
