package repository

import (
	"context"

	"github.com/spec-kit/ticket-ingest/internal/domain"
)

// NotificationRepository encapsulates in-app notification persistence.
type NotificationRepository interface {
	// UnreadExists reports whether an unread notification with the exact
	// (user, ticket, message) triple is already stored.
	UnreadExists(ctx context.Context, userID, ticketID int64, message string) (bool, error)
	Insert(ctx context.Context, n *domain.Notification) error
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) UnreadExists(ctx context.Context, userID, ticketID int64, message string) (bool, error) {
	const query = `
        SELECT EXISTS(
            SELECT 1 FROM notifications
            WHERE user_id=$1 AND ticket_id=$2 AND message=$3 AND is_read=FALSE
        )`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, ticketID, message).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *notificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, ticket_id, ticket_code, message, is_read, created_at)
        VALUES ($1,$2,$3,$4,FALSE,NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		n.UserID,
		n.TicketID,
		n.TicketCode,
		n.Message,
	).Scan(&n.ID, &n.CreatedAt)
}
