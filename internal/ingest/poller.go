package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/config"
	"github.com/spec-kit/ticket-ingest/internal/cursor"
	"github.com/spec-kit/ticket-ingest/internal/mail"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/pkg/util"
)

// Poller run states. The transition NotStarted→Running happens exactly once
// via compare-and-swap; a stopped poller cannot be restarted.
const (
	pollerNotStarted int32 = iota
	pollerRunning
	pollerStopped
)

// ErrAlreadyStarted is returned when Run is called on a poller that is
// running or has already finished.
var ErrAlreadyStarted = errors.New("poller already started")

// Poller owns the mailbox session lifecycle: it dials a fresh session each
// cycle, searches past the persisted cursor, hands fetched messages to the
// filter and materializer, and advances the cursor for every handled message
// whether accepted or rejected.
type Poller struct {
	dial    mail.Dialer
	cursor  cursor.Store
	filter  *Filter
	tickets *Materializer
	cfg     config.MailboxConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	state   atomic.Int32
}

// PollerDependencies bundles collaborators for the poller.
type PollerDependencies struct {
	Dial         mail.Dialer
	Cursor       cursor.Store
	Filter       *Filter
	Materializer *Materializer
	Config       config.MailboxConfig
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewPoller constructs the poller.
func NewPoller(deps PollerDependencies) *Poller {
	return &Poller{
		dial:    deps.Dial,
		cursor:  deps.Cursor,
		filter:  deps.Filter,
		tickets: deps.Materializer,
		cfg:     deps.Config,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
}

// Run executes the ingestion loop until ctx is cancelled. Transient errors
// abort the current cycle and are retried after the configured delay; the
// loop itself never terminates on them. Cancellation is honored between
// cycles and between messages, never mid-transaction.
func (p *Poller) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(pollerNotStarted, pollerRunning) {
		return ErrAlreadyStarted
	}
	defer p.state.Store(pollerStopped)

	p.logger.Info("mailbox poller started",
		zap.String("host", p.cfg.Addr()),
		zap.String("folder", p.cfg.Folder),
		zap.Bool("process_all", p.cfg.ProcessAll))

	for {
		delay := p.cfg.PollInterval
		processed, err := p.cycle(ctx)
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			return ctx.Err()
		case err != nil:
			p.metrics.Inc(observability.MetricPollErrors)
			p.logger.Error("poll cycle failed",
				zap.String("stage", util.StageOf(err)),
				zap.Error(err))
			delay = p.cfg.RetryDelay
		case processed > 0:
			// More mail may be waiting; go straight into the next cycle.
			delay = 0
		}

		select {
		case <-ctx.Done():
			p.logger.Info("mailbox poller stopping")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// cycle performs one connect→search→fetch→filter→materialize pass and
// reports how many messages it handled.
func (p *Poller) cycle(ctx context.Context) (int, error) {
	p.metrics.Inc(observability.MetricPollCycles)

	client, err := p.dial(ctx)
	if err != nil {
		return 0, util.NewStageError(util.StageConnect, "", err)
	}
	defer func() {
		_ = client.Close()
	}()

	last := p.cursor.Read(ctx)

	var uids []uint32
	if p.cfg.ProcessAll {
		unseen, err := client.SearchUnseen()
		if err != nil {
			return 0, util.NewStageError(util.StageSearch, "", err)
		}
		for _, uid := range unseen {
			if uid > last {
				uids = append(uids, uid)
			}
		}
	} else {
		found, err := client.SearchAfter(last)
		if err != nil {
			return 0, util.NewStageError(util.StageSearch, "", err)
		}
		if len(found) > 0 {
			uids = found[len(found)-1:]
		}
	}

	processed := 0
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := p.handleMessage(ctx, client, uid); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// handleMessage fetches and processes one message. A malformed message is a
// filter rejection, not a poller failure; the cursor advances for it like any
// other handled message so it is never re-fetched.
func (p *Poller) handleMessage(ctx context.Context, client mail.Client, uid uint32) error {
	raw, err := client.Fetch(uid)
	if err != nil {
		return util.NewStageError(util.StageFetch, "", err)
	}

	msg, parseErr := mail.Parse(raw)
	if parseErr != nil {
		p.metrics.Inc(observability.MetricMessagesRejected)
		p.logger.Warn("malformed message rejected",
			zap.Uint32("uid", uid),
			zap.Error(parseErr))
		p.cursor.Write(ctx, uid)
		return nil
	}

	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("fallback-%d", uid)
	}

	if env, reason := p.filter.Evaluate(msg); env == nil {
		p.metrics.Inc(observability.MetricMessagesRejected)
		p.logger.Info("message rejected",
			zap.Uint32("uid", uid),
			zap.String("message_id", msg.MessageID),
			zap.String("reason", reason))
	} else {
		p.metrics.Inc(observability.MetricMessagesAccepted)
		p.tickets.CreateTicket(ctx, env)
	}

	p.cursor.Write(ctx, uid)
	return nil
}
