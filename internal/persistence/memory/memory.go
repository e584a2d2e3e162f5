// Package memory provides an in-memory implementation of the persistence
// unit of work and repositories. It mirrors transactional semantics (writes
// made inside a failed Run are discarded) and is used as the store double in
// service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/persistence"
)

// Store is an in-memory stand-in for the relational store.
//
// The exported *Err fields inject failures into the corresponding repository
// calls, which makes rollback paths testable.
type Store struct {
	mu    sync.Mutex
	state state

	Now                   func() time.Time
	InsertTicketErr       error
	SetCodeErr            error
	InsertNotificationErr error
	MarkEscalatedErr      error
	ListUnresolvedErr     error
}

type state struct {
	tickets            []domain.Ticket
	notifications      []domain.Notification
	users              []domain.User
	nextTicketID       int64
	nextNotificationID int64
}

func (st state) clone() state {
	cp := st
	cp.tickets = append([]domain.Ticket(nil), st.tickets...)
	cp.notifications = append([]domain.Notification(nil), st.notifications...)
	cp.users = append([]domain.User(nil), st.users...)
	return cp
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		state: state{nextTicketID: 1, nextNotificationID: 1},
		Now:   time.Now,
	}
}

// Run executes fn against a copy of the store state and keeps the copy only
// when fn succeeds, mimicking commit/rollback.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r persistence.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	repos := persistence.Repos{
		Tickets:       &ticketRepo{store: s, state: &work},
		Notifications: &notificationRepo{store: s, state: &work},
		Users:         &userRepo{state: &work},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.state = work
	return nil
}

// AddUser seeds a staff account.
func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users = append(s.state.users, u)
	return u
}

// AddTicket seeds a ticket, assigning its identifier.
func (s *Store) AddTicket(t domain.Ticket) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.state.nextTicketID
	s.state.nextTicketID++
	s.state.tickets = append(s.state.tickets, t)
	return t
}

// Tickets returns a copy of all stored tickets.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Ticket(nil), s.state.tickets...)
}

// Notifications returns a copy of all stored notifications.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.state.notifications...)
}

// MarkNotificationRead flips the read flag on a stored notification.
func (s *Store) MarkNotificationRead(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.notifications {
		if s.state.notifications[i].ID == id {
			s.state.notifications[i].Read = true
		}
	}
}

var _ persistence.UnitOfWork = (*Store)(nil)
