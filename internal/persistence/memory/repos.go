package memory

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-ingest/internal/domain"
)

// ErrNotFound is returned when a row targeted by an update does not exist.
var ErrNotFound = errors.New("not found")

type ticketRepo struct {
	store *Store
	state *state
}

func (r *ticketRepo) ExistsByMessageID(_ context.Context, messageID string) (bool, error) {
	for _, t := range r.state.tickets {
		if t.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ticketRepo) Insert(_ context.Context, ticket *domain.Ticket) error {
	if r.store.InsertTicketErr != nil {
		return r.store.InsertTicketErr
	}
	now := r.store.Now()
	ticket.ID = r.state.nextTicketID
	r.state.nextTicketID++
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.state.tickets = append(r.state.tickets, *ticket)
	return nil
}

func (r *ticketRepo) SetCode(_ context.Context, id int64, code string) error {
	if r.store.SetCodeErr != nil {
		return r.store.SetCodeErr
	}
	for i := range r.state.tickets {
		if r.state.tickets[i].ID == id {
			r.state.tickets[i].Code = code
			r.state.tickets[i].UpdatedAt = r.store.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (r *ticketRepo) ListUnresolved(_ context.Context) ([]domain.OverdueCandidate, error) {
	if r.store.ListUnresolvedErr != nil {
		return nil, r.store.ListUnresolvedErr
	}
	now := r.store.Now()
	var result []domain.OverdueCandidate
	for _, t := range r.state.tickets {
		if t.Status == domain.TicketStatusResolved {
			continue
		}
		c := domain.OverdueCandidate{
			TicketID:     t.ID,
			Code:         t.Code,
			Requester:    t.Email,
			SLAHours:     t.SLAHours,
			ElapsedHours: int(now.Sub(t.CreatedAt).Hours()),
			Escalated:    t.Escalated,
			AgentID:      t.AssignedTo,
		}
		if t.AssignedTo != nil {
			for _, u := range r.state.users {
				if u.ID == *t.AssignedTo {
					email := u.Email
					c.AgentEmail = &email
				}
			}
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *ticketRepo) MarkEscalated(_ context.Context, id int64) error {
	if r.store.MarkEscalatedErr != nil {
		return r.store.MarkEscalatedErr
	}
	for i := range r.state.tickets {
		if r.state.tickets[i].ID == id {
			r.state.tickets[i].Escalated = true
			r.state.tickets[i].UpdatedAt = r.store.Now()
			return nil
		}
	}
	return ErrNotFound
}

type notificationRepo struct {
	store *Store
	state *state
}

func (r *notificationRepo) UnreadExists(_ context.Context, userID, ticketID int64, message string) (bool, error) {
	for _, n := range r.state.notifications {
		if n.UserID == userID && n.TicketID == ticketID && n.Message == message && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (r *notificationRepo) Insert(_ context.Context, n *domain.Notification) error {
	if r.store.InsertNotificationErr != nil {
		return r.store.InsertNotificationErr
	}
	n.ID = r.state.nextNotificationID
	r.state.nextNotificationID++
	n.CreatedAt = r.store.Now()
	r.state.notifications = append(r.state.notifications, *n)
	return nil
}

type userRepo struct {
	state *state
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range r.state.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepo) ListAdmins(_ context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, u := range r.state.users {
		if u.Role == domain.UserRoleAdmin {
			result = append(result, u)
		}
	}
	return result, nil
}
