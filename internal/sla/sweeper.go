// Package sla implements the periodic overdue-ticket sweep and its one-shot
// escalation latch.
package sla

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/events"
	"github.com/spec-kit/ticket-ingest/internal/notify"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/internal/persistence"
	"github.com/spec-kit/ticket-ingest/pkg/util"
)

const (
	sweeperNotStarted int32 = iota
	sweeperRunning
)

// ErrAlreadyScheduled is returned when Schedule is called twice.
var ErrAlreadyScheduled = errors.New("sweeper already scheduled")

// Sweeper scans unresolved tickets for SLA breaches and escalates each at
// most once.
type Sweeper struct {
	uow        persistence.UnitOfWork
	fanout     *notify.Fanout
	alerter    notify.Alerter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	state      atomic.Int32
}

// SweeperDependencies bundles collaborators for the sweeper.
type SweeperDependencies struct {
	UnitOfWork persistence.UnitOfWork
	Fanout     *notify.Fanout
	Alerter    notify.Alerter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSweeper constructs the sweeper.
func NewSweeper(deps SweeperDependencies) *Sweeper {
	return &Sweeper{
		uow:        deps.UnitOfWork,
		fanout:     deps.Fanout,
		alerter:    deps.Alerter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// Schedule registers the sweep on a cron runner firing at the given interval.
// The job is wrapped with SkipIfStillRunning: at most one sweep executes at a
// time, and a tick that arrives while the previous run is still in progress
// is dropped, not queued. The returned cron must be stopped on shutdown.
func (s *Sweeper) Schedule(ctx context.Context, interval time.Duration) (*cron.Cron, error) {
	if !s.state.CompareAndSwap(sweeperNotStarted, sweeperRunning) {
		return nil, ErrAlreadyScheduled
	}

	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.Sweep(ctx)
	}); err != nil {
		return nil, err
	}
	runner.Start()
	s.logger.Info("sla sweep scheduled", zap.Duration("interval", interval))
	return runner, nil
}

// Sweep performs one overdue-detection pass. Each escalation runs in its own
// transaction so one ticket's failure cannot corrupt another's latch state.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.metrics.Inc(observability.MetricSweepRuns)

	var candidates []domain.OverdueCandidate
	err := s.uow.Run(ctx, func(ctx context.Context, r persistence.Repos) error {
		var err error
		candidates, err = r.Tickets.ListUnresolved(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("sla sweep failed", zap.Error(util.NewStageError(util.StageSweep, "", err)))
		return
	}

	escalated := 0
	for _, c := range candidates {
		if c.ElapsedHours <= c.SLAHours {
			continue
		}
		if c.Escalated {
			continue
		}
		if err := s.escalate(ctx, c); err != nil {
			s.logger.Error("escalation failed",
				zap.String("ticket_code", c.Code),
				zap.Error(err))
			continue
		}
		escalated++
	}

	if escalated > 0 {
		s.logger.Info("overdue escalations sent", zap.Int("count", escalated))
	}
}

func (s *Sweeper) escalate(ctx context.Context, c domain.OverdueCandidate) error {
	overdueBy := c.OverdueBy()
	agent := "Unassigned"
	if c.AgentEmail != nil {
		agent = *c.AgentEmail
	}

	s.logger.Warn("ticket overdue",
		zap.String("ticket_code", c.Code),
		zap.Int("overdue_by_hours", overdueBy))

	// The external alert precedes the latch write: a failed latch write may
	// re-alert on the next sweep, but a latched ticket that never alerted
	// cannot happen. The alert itself is soft-failing and must not block the
	// in-app escalation.
	s.alerter.Alert(ctx, overdueAlertText(c.Code, c.Requester, overdueBy, agent))

	err := s.uow.Run(ctx, func(ctx context.Context, r persistence.Repos) error {
		if c.AgentID != nil {
			message := fmt.Sprintf("Ticket %s is overdue", c.Code)
			if _, err := s.fanout.Notify(ctx, r.Notifications, *c.AgentID, c.TicketID, c.Code, message); err != nil {
				return err
			}
		}

		admins, err := r.Users.ListAdmins(ctx)
		if err != nil {
			return err
		}
		for _, admin := range admins {
			message := fmt.Sprintf("Overdue ticket %s requires attention", c.Code)
			if _, err := s.fanout.Notify(ctx, r.Notifications, admin.ID, c.TicketID, c.Code, message); err != nil {
				return err
			}
		}

		return r.Tickets.MarkEscalated(ctx, c.TicketID)
	})
	if err != nil {
		return util.NewStageError(util.StageSweep, "", err)
	}

	s.metrics.Inc(observability.MetricEscalations)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:       events.EventTicketEscalated,
			TicketID:   c.TicketID,
			TicketCode: c.Code,
			Timestamp:  time.Now(),
			Payload: events.TicketEscalatedPayload{
				OverdueByHours: overdueBy,
				AgentEmail:     agent,
			},
		})
	}
	return nil
}

func overdueAlertText(code, requester string, overdueBy int, agent string) string {
	return fmt.Sprintf(
		"🚨 *OVERDUE TICKET ALERT*\n"+
			"*Ticket:* %s\n"+
			"*Client:* %s\n"+
			"*Overdue By:* %dh\n"+
			"*Agent:* %s\n"+
			"⚠️ Immediate action required",
		code, requester, overdueBy, agent)
}
