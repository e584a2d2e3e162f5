package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-ingest/internal/api/http"
	"github.com/spec-kit/ticket-ingest/internal/config"
	"github.com/spec-kit/ticket-ingest/internal/cursor"
	"github.com/spec-kit/ticket-ingest/internal/events"
	"github.com/spec-kit/ticket-ingest/internal/ingest"
	"github.com/spec-kit/ticket-ingest/internal/mail"
	"github.com/spec-kit/ticket-ingest/internal/notify"
	"github.com/spec-kit/ticket-ingest/internal/observability"
	"github.com/spec-kit/ticket-ingest/internal/persistence"
	"github.com/spec-kit/ticket-ingest/internal/sla"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	uow := persistence.NewUnitOfWork(pg.PoolHandle())
	fanout := notify.NewFanout(logger)
	alerter := notify.NewSlackAlerter(cfg.Alert, logger)

	dispatcher := events.NewInMemoryDispatcher()
	if cfg.Ingest.SendAck {
		ackMailer := mail.NewAckMailer(cfg.SMTP, logger)
		dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, ev events.Event) error {
			payload, ok := ev.Payload.(events.TicketCreatedPayload)
			if !ok {
				return nil
			}
			ackMailer.Send(payload.Requester, payload.Subject, ev.TicketCode, payload.MessageID)
			return nil
		})
	}

	materializer := ingest.NewMaterializer(ingest.MaterializerDependencies{
		UnitOfWork:      uow,
		Fanout:          fanout,
		Dispatcher:      dispatcher,
		DefaultSLAHours: cfg.SLA.DefaultHours,
		Logger:          logger,
		Metrics:         metrics,
	})

	var cursorStore cursor.Store
	switch cfg.Cursor.Backend {
	case "redis":
		cursorStore = cursor.NewRedisStore(redis.Client, cfg.Cursor.RedisKey, logger)
	default:
		cursorStore = cursor.NewFileStore(cfg.Cursor.FilePath, logger)
	}

	poller := ingest.NewPoller(ingest.PollerDependencies{
		Dial: func(ctx context.Context) (mail.Client, error) {
			return mail.Dial(ctx, cfg.Mailbox, logger)
		},
		Cursor:       cursorStore,
		Filter:       ingest.NewFilter(cfg.Ingest),
		Materializer: materializer,
		Config:       cfg.Mailbox,
		Logger:       logger,
		Metrics:      metrics,
	})

	sweeper := sla.NewSweeper(sla.SweeperDependencies{
		UnitOfWork: uow,
		Fanout:     fanout,
		Alerter:    alerter,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	sweepCron, err := sweeper.Schedule(ctx, cfg.SLA.SweepInterval)
	if err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}

	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Fatal("mailbox poller exited", zap.Error(err))
		}
	}()

	health := httptransport.NewHealthServer(cfg.App, pg, redis, metrics)
	go func() {
		if err := health.Listen(); err != nil {
			logger.Fatal("health server listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-sweepCron.Stop().Done()
	_ = health.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
