package domain

// NotificationLevel distinguishes success and failure notices.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is a non-blocking, user-visible notice.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Success builds a success notification.
func Success(message string) Notification {
	return Notification{Level: NotificationSuccess, Message: message}
}

// Failure builds an error notification.
func Failure(message string) Notification {
	return Notification{Level: NotificationError, Message: message}
}
