package enums

import "fmt"

// NotificationType classifies staff-facing in-app notifications.
type NotificationType string

const (
	NotificationNewLead       NotificationType = "new_lead"
	NotificationTourRequested NotificationType = "tour_requested"
	NotificationSystem        NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationNewLead,
	NotificationTourRequested,
	NotificationSystem,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the notification type is recognized.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts a raw string into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
