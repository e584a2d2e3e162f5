package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Ticket is the aggregate for support requests materialized from inbound
// email. MessageID is the mailbox-assigned unique identifier and the dedup
// key: no two tickets ever share one. Code is derived from the store-assigned
// row id and is immutable once set. Escalated is a one-way latch flipped true
// at most once per ticket lifetime by the SLA sweep.
type Ticket struct {
	ID          int64
	Code        string
	Email       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	MessageID   string
	AssignedTo  *int64
	Escalated   bool
	SLAHours    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OverdueCandidate is the sweep's read model: one unresolved ticket joined
// with its assigned agent and the hours elapsed since creation.
type OverdueCandidate struct {
	TicketID     int64
	Code         string
	Requester    string
	SLAHours     int
	ElapsedHours int
	Escalated    bool
	AgentID      *int64
	AgentEmail   *string
}

// OverdueBy returns how many hours past its SLA threshold the ticket is.
// Zero or negative means the ticket is not yet overdue.
func (c OverdueCandidate) OverdueBy() int {
	return c.ElapsedHours - c.SLAHours
}
