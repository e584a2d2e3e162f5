package events

import (
	"time"

	"github.com/spec-kit/ticket-ingest/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketEscalated EventType = "ticket_escalated"
)

// Event represents a domain event emitted after a unit of work commits.
// Handlers run outside any transaction, so they are the home for side
// effects that must never roll a ticket write back.
type Event struct {
	Type       EventType
	TicketID   int64
	TicketCode string
	Timestamp  time.Time
	Payload    interface{}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Requester string
	Subject   string
	MessageID string
	Priority  domain.TicketPriority
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OverdueByHours int
	AgentEmail     string
}
