package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cybertourney/tournament-client/models"
)

// sessionRecord is the on-disk layout of a stored session.
type sessionRecord struct {
	AuthToken string          `json:"auth_token"`
	User      json.RawMessage `json:"user,omitempty"`
}

type fileSessionStore struct {
	path string
	mu   sync.Mutex
}

// NewFileSessionStore returns a SessionStore backed by a single JSON file
// at path. The file is created on the first Save. Corrupt or partially
// written files are treated as an absent session, never as a failure.
func NewFileSessionStore(path string) (SessionStore, error) {
	if path == "" {
		return nil, errors.New("invalid session store configuration: path is required")
	}
	return &fileSessionStore{path: path}, nil
}

func (s *fileSessionStore) LoadToken() (string, bool) {
	rec, ok := s.read()
	if !ok || rec.AuthToken == "" {
		return "", false
	}
	return rec.AuthToken, true
}

func (s *fileSessionStore) LoadUser() (*models.User, bool) {
	rec, ok := s.read()
	if !ok || len(rec.User) == 0 {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal(rec.User, &user); err != nil {
		return nil, false
	}
	return &user, true
}

func (s *fileSessionStore) Save(token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := sessionRecord{AuthToken: token}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to serialize session user: %w", err)
		}
		rec.User = raw
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file %s: %w", s.path, err)
	}
	return nil
}

func (s *fileSessionStore) read() (sessionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec sessionRecord
	data, err := os.ReadFile(s.path)
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return sessionRecord{}, false
	}
	return rec, true
}
