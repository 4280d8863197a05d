package models

// NotificationType picks the toast style.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

// Notification is a transient message shown after a mutation.
type Notification struct {
	Type    NotificationType
	Message string
}
