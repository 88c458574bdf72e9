package auth

import (
	"errors"

	"agenda/internal/models"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Policy holds the account capabilities decided when a session is built.
type Policy struct {
	ReadOnlyUsers map[string]struct{}
}

// NewPolicy returns a policy marking the given user IDs read-only.
func NewPolicy(readOnlyUsers ...string) Policy {
	p := Policy{ReadOnlyUsers: make(map[string]struct{}, len(readOnlyUsers))}
	for _, id := range readOnlyUsers {
		if id != "" {
			p.ReadOnlyUsers[id] = struct{}{}
		}
	}
	return p
}

func (p Policy) IsReadOnly(userID string) bool {
	_, ok := p.ReadOnlyUsers[userID]
	return ok
}

// Session is the explicit authentication context handed to the stores.
// The zero value is an anonymous session.
type Session struct {
	user     *models.User
	readOnly bool
}

// NewSession builds a session for user. A nil user yields an anonymous session.
func NewSession(user *models.User, policy Policy) Session {
	if user == nil {
		return Session{}
	}
	u := *user
	return Session{user: &u, readOnly: policy.IsReadOnly(u.ID)}
}

func (s Session) Authenticated() bool {
	return s.user != nil
}

// UserID returns the current user ID, or "" for anonymous sessions.
func (s Session) UserID() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// User returns a copy of the current user.
func (s Session) User() (models.User, bool) {
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// ReadOnly reports whether mutations must be rejected for this session.
func (s Session) ReadOnly() bool {
	return s.readOnly
}
