package syncclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Session holds the bearer credential issued at login, persisted as a token
// file so the client survives restarts.
type Session struct {
	path string
}

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewSession constructs a session backed by the given config directory.
func NewSession(dir string) *Session {
	return &Session{path: filepath.Join(dir, "token.json")}
}

// Save persists the credential.
func (s *Session) Save(token, userID, email string, expiresAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{
		AccessToken: token,
		UserID:      userID,
		Email:       email,
		ExpiresAt:   expiresAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Clear removes the stored credential.
func (s *Session) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Session) load() (tokenFile, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return tokenFile{}, false
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, false
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, false
	}
	return tf, true
}

// Token returns the current bearer token, if still valid.
func (s *Session) Token() (string, bool) {
	tf, ok := s.load()
	return tf.AccessToken, ok
}

// UserID returns the authenticated user id, if any.
func (s *Session) UserID() (string, bool) {
	tf, ok := s.load()
	return tf.UserID, ok
}

// Authenticated reports whether a valid credential is present.
func (s *Session) Authenticated() bool {
	_, ok := s.load()
	return ok
}
