package notification

import "context"

// Repository defines persistence for notification rows. In-app admin
// notifications are stored here and listed on the dashboard; guardian sends
// are stored too, for the delivery audit trail.
type Repository interface {
	// Create stores a new notification.
	Create(ctx context.Context, n *Notification) error

	// Update persists status changes (sent/failed).
	Update(ctx context.Context, n *Notification) error

	// ListBySchool returns a school's notifications, newest first.
	ListBySchool(ctx context.Context, schoolID string, limit int) ([]*Notification, error)

	// ListByStudent returns a student's notifications, newest first.
	ListByStudent(ctx context.Context, studentID string, limit int) ([]*Notification, error)
}
