package query

import (
	"context"
	"fmt"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ListNotificationsQuery returns the notification audit trail for a school
// or a single student. Exactly one of SchoolID/StudentID must be set;
// StudentID wins when both are.
type ListNotificationsQuery struct {
	SchoolID  string
	StudentID string
	Limit     int // 0 = default
}

const defaultNotificationListLimit = 50

// ListNotificationsHandler handles the query.
type ListNotificationsHandler struct {
	notificationRepo notification.Repository
}

// NewListNotificationsHandler creates the handler.
func NewListNotificationsHandler(notificationRepo notification.Repository) *ListNotificationsHandler {
	return &ListNotificationsHandler{notificationRepo: notificationRepo}
}

// Handle executes the query.
func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) ([]*notification.Notification, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultNotificationListLimit
	}

	switch {
	case q.StudentID != "":
		rows, err := h.notificationRepo.ListByStudent(ctx, q.StudentID, limit)
		if err != nil {
			return nil, fmt.Errorf("list_notifications: by student: %w", err)
		}
		return rows, nil
	case q.SchoolID != "":
		rows, err := h.notificationRepo.ListBySchool(ctx, q.SchoolID, limit)
		if err != nil {
			return nil, fmt.Errorf("list_notifications: by school: %w", err)
		}
		return rows, nil
	default:
		return nil, shared.NewDomainError("query", "ListNotifications", shared.ErrInvalidID, "school_id or student_id is required")
	}
}
