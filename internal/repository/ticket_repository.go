package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ticket-ingest/internal/domain"
)

// DBTX is the querying surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories are bound to one at construction time; passing a transaction
// scopes every call to it, which is how services keep ticket and notification
// writes atomic.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	ExistsByMessageID(ctx context.Context, messageID string) (bool, error)
	Insert(ctx context.Context, ticket *domain.Ticket) error
	SetCode(ctx context.Context, id int64, code string) error
	ListUnresolved(ctx context.Context) ([]domain.OverdueCandidate, error)
	MarkEscalated(ctx context.Context, id int64) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tickets WHERE message_id=$1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, messageID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (email, description, status, priority, message_id, sla_hours, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Email,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.MessageID,
		ticket.SLAHours,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) SetCode(ctx context.Context, id int64, code string) error {
	const query = `UPDATE tickets SET ticket_code=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, code, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListUnresolved(ctx context.Context) ([]domain.OverdueCandidate, error) {
	const query = `
        SELECT t.id, COALESCE(t.ticket_code, ''), t.email, t.sla_hours, t.slack_notified,
               FLOOR(EXTRACT(EPOCH FROM (NOW() - t.created_at)) / 3600)::int,
               u.id, u.email
        FROM tickets t
        LEFT JOIN users u ON t.assigned_to = u.id
        WHERE t.status <> $1
        ORDER BY t.id`
	rows, err := r.db.Query(ctx, query, domain.TicketStatusResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OverdueCandidate
	for rows.Next() {
		var c domain.OverdueCandidate
		if err := rows.Scan(
			&c.TicketID,
			&c.Code,
			&c.Requester,
			&c.SLAHours,
			&c.Escalated,
			&c.ElapsedHours,
			&c.AgentID,
			&c.AgentEmail,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ticketRepository) MarkEscalated(ctx context.Context, id int64) error {
	const query = `UPDATE tickets SET slack_notified=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
