package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/events"
	"github.com/spec-kit/ticket-ingest/internal/notify"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/internal/persistence/memory"
)

func newTestMaterializer(store *memory.Store, dispatcher events.Dispatcher) *Materializer {
	return NewMaterializer(MaterializerDependencies{
		UnitOfWork:      store,
		Fanout:          notify.NewFanout(zap.NewNop()),
		Dispatcher:      dispatcher,
		DefaultSLAHours: 72,
		Logger:          zap.NewNop(),
		Metrics:         observability.NewMetrics(),
	})
}

func TestCreateTicketAssignsCodeAndNotifiesAdmins(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(domain.User{ID: 1, Email: "madison@leaders.st", Role: domain.UserRoleAdmin})
	store.AddUser(domain.User{ID: 2, Email: "cain@leaders.st", Role: domain.UserRoleAdmin})
	store.AddUser(domain.User{ID: 3, Email: "agent@leaders.st", Role: domain.UserRoleAgent})
	m := newTestMaterializer(store, nil)

	code := m.CreateTicket(context.Background(), &Envelope{
		Sender:    "client@x.com",
		Subject:   "Urgent: server down",
		Body:      "Everything is on fire.",
		Priority:  domain.TicketPriorityHigh,
		MessageID: "abc123@x.com",
	})
	if code != "TCK-00001" {
		t.Fatalf("code = %q, want TCK-00001", code)
	}

	tickets := store.Tickets()
	if len(tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(tickets))
	}
	tk := tickets[0]
	if tk.Code != "TCK-00001" || tk.Email != "client@x.com" || tk.Status != domain.TicketStatusOpen {
		t.Errorf("unexpected ticket %+v", tk)
	}
	if tk.SLAHours != 72 {
		t.Errorf("sla_hours = %d, want 72", tk.SLAHours)
	}

	notifs := store.Notifications()
	if len(notifs) != 2 {
		t.Fatalf("notifications = %d, want one per admin", len(notifs))
	}
	for _, n := range notifs {
		if n.Message != "New ticket created: TCK-00001" {
			t.Errorf("message = %q", n.Message)
		}
		if n.UserID != 1 && n.UserID != 2 {
			t.Errorf("notification went to non-admin user %d", n.UserID)
		}
	}
}

func TestCreateTicketIsIdempotentByMessageID(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(domain.User{ID: 1, Email: "madison@leaders.st", Role: domain.UserRoleAdmin})
	m := newTestMaterializer(store, nil)

	env := &Envelope{
		Sender:    "client@x.com",
		Subject:   "hello",
		Body:      "body",
		Priority:  domain.TicketPriorityLow,
		MessageID: "dup@x.com",
	}
	if code := m.CreateTicket(context.Background(), env); code == "" {
		t.Fatal("first delivery should create a ticket")
	}
	if code := m.CreateTicket(context.Background(), env); code != "" {
		t.Fatalf("redelivery created ticket %q", code)
	}
	if n := len(store.Tickets()); n != 1 {
		t.Errorf("tickets = %d, want 1", n)
	}
	if n := len(store.Notifications()); n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}

func TestCreateTicketRollsBackOnFailure(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(domain.User{ID: 1, Email: "madison@leaders.st", Role: domain.UserRoleAdmin})
	store.SetCodeErr = errors.New("write conflict")
	m := newTestMaterializer(store, nil)

	code := m.CreateTicket(context.Background(), &Envelope{
		Sender:    "client@x.com",
		Subject:   "hello",
		MessageID: "roll@x.com",
	})
	if code != "" {
		t.Fatalf("code = %q, want empty on failure", code)
	}
	if n := len(store.Tickets()); n != 0 {
		t.Errorf("tickets persisted despite rollback: %d", n)
	}
	if n := len(store.Notifications()); n != 0 {
		t.Errorf("notifications persisted despite rollback: %d", n)
	}

	// The failure is transient; the same message must succeed afterwards.
	store.SetCodeErr = nil
	if code := m.CreateTicket(context.Background(), &Envelope{
		Sender:    "client@x.com",
		Subject:   "hello",
		MessageID: "roll@x.com",
	}); code == "" {
		t.Fatal("retry after rollback should create the ticket")
	}
}

func TestCreateTicketPublishesEvent(t *testing.T) {
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()

	var got events.Event
	dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, ev events.Event) error {
		got = ev
		return nil
	})
	m := newTestMaterializer(store, dispatcher)

	m.CreateTicket(context.Background(), &Envelope{
		Sender:    "client@x.com",
		Subject:   "hello",
		Priority:  domain.TicketPriorityLow,
		MessageID: "ev@x.com",
	})
	if got.TicketCode != "TCK-00001" {
		t.Fatalf("event ticket code = %q", got.TicketCode)
	}
	payload, ok := got.Payload.(events.TicketCreatedPayload)
	if !ok {
		t.Fatalf("payload type %T", got.Payload)
	}
	if payload.Requester != "client@x.com" || payload.MessageID != "ev@x.com" {
		t.Errorf("unexpected payload %+v", payload)
	}
}
