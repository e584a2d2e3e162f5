// Package notify delivers one logical alert to its recipients: in-app
// notification rows for staff, and the outbound chat webhook.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/repository"
)

// Fanout creates in-app notification records with duplicate suppression.
type Fanout struct {
	logger *zap.Logger
}

// NewFanout builds the fan-out component.
func NewFanout(logger *zap.Logger) *Fanout {
	return &Fanout{logger: logger}
}

// Notify inserts a notification row unless an identical unread one already
// exists for the same (recipient, ticket, message) triple. It reports whether
// a row was created. The repository is bound to the caller's transaction;
// Notify never commits on its own, so ticket mutation and notification
// creation land atomically.
func (f *Fanout) Notify(ctx context.Context, notifications repository.NotificationRepository, userID, ticketID int64, ticketCode, message string) (bool, error) {
	exists, err := notifications.UnreadExists(ctx, userID, ticketID, message)
	if err != nil {
		return false, err
	}
	if exists {
		f.logger.Debug("duplicate unread notification suppressed",
			zap.Int64("user_id", userID),
			zap.Int64("ticket_id", ticketID))
		return false, nil
	}

	n := &domain.Notification{
		UserID:     userID,
		TicketID:   ticketID,
		TicketCode: ticketCode,
		Message:    message,
	}
	if err := notifications.Insert(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}
