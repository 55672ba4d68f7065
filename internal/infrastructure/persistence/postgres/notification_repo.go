// Package postgres implements the PostgreSQL persistence layer for EduGuard.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eduguard/eduguard-backend/internal/domain/notification"
	"github.com/eduguard/eduguard-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository for PostgreSQL.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

const notificationColumns = `
	id, school_id, student_id, type, recipient, channel, severity, title,
	message, status, sent_at, failed_at, last_err, created_at
`

// Create stores a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.conn.Exec(ctx, query,
		n.ID,
		n.SchoolID,
		n.StudentID,
		string(n.Type),
		string(n.Recipient),
		string(n.Channel),
		n.Severity,
		n.Title,
		n.Message,
		string(n.Status),
		n.SentAt,
		n.FailedAt,
		n.LastErr,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// Update persists status changes.
func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	query := `
		UPDATE notifications SET
			status = $2,
			sent_at = $3,
			failed_at = $4,
			last_err = $5
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		n.ID,
		string(n.Status),
		n.SentAt,
		n.FailedAt,
		n.LastErr,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotificationNotFound
	}

	return nil
}

// ListBySchool returns a school's notifications, newest first.
func (r *NotificationRepository) ListBySchool(ctx context.Context, schoolID string, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE school_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryNotifications(ctx, query, schoolID, limit)
}

// ListByStudent returns a student's notifications, newest first.
func (r *NotificationRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryNotifications(ctx, query, studentID, limit)
}

func (r *NotificationRepository) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*notification.Notification, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// scanNotification scans a row into a Notification.
func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n         notification.Notification
		typ       string
		recipient string
		channel   string
		status    string
	)

	err := row.Scan(
		&n.ID,
		&n.SchoolID,
		&n.StudentID,
		&typ,
		&recipient,
		&channel,
		&n.Severity,
		&n.Title,
		&n.Message,
		&status,
		&n.SentAt,
		&n.FailedAt,
		&n.LastErr,
		&n.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	n.Type = notification.Type(typ)
	n.Recipient = notification.RecipientKind(recipient)
	n.Channel = notification.Channel(channel)
	n.Status = notification.Status(status)

	return &n, nil
}
