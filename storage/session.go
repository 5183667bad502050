package storage

import (
	"github.com/cybertourney/tournament-client/models"
)

// SessionStore persists the authenticated session (bearer token plus the
// cached user record) across process restarts. A session is atomic: token
// and user are saved and removed together.
type SessionStore interface {
	// LoadToken returns the stored token, or false if none is stored
	// or the stored data is unreadable.
	LoadToken() (string, bool)

	// LoadUser returns the stored user record, or false if none is
	// stored or the stored data is unreadable.
	LoadUser() (*models.User, bool)

	// Save stores the token and user, replacing any previous session.
	Save(token string, user *models.User) error

	// Clear removes the stored session. Clearing an absent session is
	// not an error.
	Clear() error
}
