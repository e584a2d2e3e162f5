package domain

import "time"

// Notification is an in-app alert addressed to one user about one ticket.
// TicketCode is denormalized for display. The fan-out component guarantees
// that no two unread notifications exist for the same (user, ticket, message)
// triple; the store carries no uniqueness constraint for it.
type Notification struct {
	ID         int64
	UserID     int64
	TicketID   int64
	TicketCode string
	Message    string
	Read       bool
	CreatedAt  time.Time
}
