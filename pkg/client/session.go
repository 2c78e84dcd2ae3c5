package client

import (
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// Session is the persisted authentication state: the logged-in admin and the
// bearer token presented on every request.
type Session struct {
	User  Admin  `json:"user"`
	Token string `json:"token"`
}

// SessionStore keeps the session in memory and mirrors it to a JSON file,
// with explicit load at startup and save on every mutation.
type SessionStore struct {
	path string

	mu  sync.Mutex
	cur Session
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load reads the persisted session. A missing file is not an error.
func (s *SessionStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return jsoniter.Unmarshal(data, &s.cur)
}

// Save replaces the session and persists it.
func (s *SessionStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = sess
	data, err := jsoniter.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear drops the session and removes the persisted file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = Session{}
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Token
}

func (s *SessionStore) User() Admin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.User
}

func (s *SessionStore) Authenticated() bool {
	return s.Token() != ""
}
