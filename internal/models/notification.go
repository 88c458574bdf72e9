package models

import (
	"fmt"
	"time"
)

// NotificationType sets the tone a notification is rendered with.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// ParseNotificationType converts a raw string into a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return t, nil
	}
	return "", fmt.Errorf("unknown notification type %q", s)
}

// Notification is a short message addressed to one user.
// EventID is a soft reference: the event may have been deleted since.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	UserID    string           `json:"userId"`
	EventID   string           `json:"eventId,omitempty"`
}

// OwnedBy reports whether the notification is addressed to userID.
func (n Notification) OwnedBy(userID string) bool {
	return n.UserID == userID
}
