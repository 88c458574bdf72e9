package models

import "time"

// User is an account known to the authenticator.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"` // Unique across users
	DisplayName string     `json:"displayName"`
	PhotoURL    string     `json:"photoURL,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}
