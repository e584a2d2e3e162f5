package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/events"
	"github.com/spec-kit/ticket-ingest/internal/notify"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/internal/persistence"
	"github.com/spec-kit/ticket-ingest/pkg/util"
)

// TicketCode derives the immutable human-readable code from the
// store-assigned identifier.
func TicketCode(id int64) string {
	return fmt.Sprintf("TCK-%05d", id)
}

// Materializer idempotently turns accepted envelopes into ticket rows.
type Materializer struct {
	uow        persistence.UnitOfWork
	fanout     *notify.Fanout
	dispatcher events.Dispatcher
	slaHours   int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// MaterializerDependencies bundles collaborators for the materializer.
type MaterializerDependencies struct {
	UnitOfWork      persistence.UnitOfWork
	Fanout          *notify.Fanout
	Dispatcher      events.Dispatcher
	DefaultSLAHours int
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// NewMaterializer constructs the service.
func NewMaterializer(deps MaterializerDependencies) *Materializer {
	return &Materializer{
		uow:        deps.UnitOfWork,
		fanout:     deps.Fanout,
		dispatcher: deps.Dispatcher,
		slaHours:   deps.DefaultSLAHours,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// CreateTicket creates a ticket for the envelope and fans a notification out
// to every admin, all inside one transaction. A message identifier already
// present in the store is the expected duplicate case and a no-op. Any
// persistence failure rolls the whole sequence back. Both outcomes return ""
// so the ingestion loop never has to branch on why nothing was created.
func (m *Materializer) CreateTicket(ctx context.Context, env *Envelope) string {
	var (
		ticket    domain.Ticket
		code      string
		duplicate bool
	)

	err := m.uow.Run(ctx, func(ctx context.Context, r persistence.Repos) error {
		exists, err := r.Tickets.ExistsByMessageID(ctx, env.MessageID)
		if err != nil {
			return util.NewStageError(util.StagePersist, env.MessageID, err)
		}
		if exists {
			duplicate = true
			return nil
		}

		ticket = domain.Ticket{
			Email:       env.Sender,
			Description: env.Body,
			Status:      domain.TicketStatusOpen,
			Priority:    env.Priority,
			MessageID:   env.MessageID,
			SLAHours:    m.slaHours,
		}
		if err := r.Tickets.Insert(ctx, &ticket); err != nil {
			return util.NewStageError(util.StagePersist, env.MessageID, err)
		}

		// The code depends on the store-assigned identifier, hence the
		// second write.
		code = TicketCode(ticket.ID)
		if err := r.Tickets.SetCode(ctx, ticket.ID, code); err != nil {
			return util.NewStageError(util.StagePersist, env.MessageID, err)
		}

		admins, err := r.Users.ListAdmins(ctx)
		if err != nil {
			return util.NewStageError(util.StageNotify, env.MessageID, err)
		}
		for _, admin := range admins {
			message := "New ticket created: " + code
			if _, err := m.fanout.Notify(ctx, r.Notifications, admin.ID, ticket.ID, code, message); err != nil {
				return util.NewStageError(util.StageNotify, env.MessageID, err)
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error("ticket creation failed",
			zap.String("message_id", env.MessageID),
			zap.Error(err))
		return ""
	}

	if duplicate {
		m.metrics.Inc(observability.MetricDuplicateEmails)
		m.logger.Info("duplicate email ignored", zap.String("message_id", env.MessageID))
		return ""
	}

	m.metrics.Inc(observability.MetricTicketsCreated)
	m.logger.Info("ticket created",
		zap.String("ticket_code", code),
		zap.String("priority", string(ticket.Priority)),
		zap.String("message_id", env.MessageID))

	if m.dispatcher != nil {
		_ = m.dispatcher.Publish(ctx, events.Event{
			Type:       events.EventTicketCreated,
			TicketID:   ticket.ID,
			TicketCode: code,
			Timestamp:  time.Now(),
			Payload: events.TicketCreatedPayload{
				Requester: env.Sender,
				Subject:   env.Subject,
				MessageID: env.MessageID,
				Priority:  env.Priority,
			},
		})
	}
	return code
}
