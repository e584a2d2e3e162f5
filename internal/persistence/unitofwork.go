package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-ingest/internal/repository"
)

// Repos bundles the repositories bound to one unit of work. Everything done
// through them inside a single Run call commits or rolls back together.
type Repos struct {
	Tickets       repository.TicketRepository
	Notifications repository.NotificationRepository
	Users         repository.UserRepository
}

// UnitOfWork opens a store session per unit of work, runs fn inside a single
// transaction and guarantees release on every exit path. Returning an error
// from fn rolls everything back; partial writes are never visible outside
// the owning transaction.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	if u.pool == nil {
		return errors.New("postgres pool not configured")
	}

	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	repos := Repos{
		Tickets:       repository.NewTicketRepository(tx),
		Notifications: repository.NewNotificationRepository(tx),
		Users:         repository.NewUserRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ repository.DBTX = (pgx.Tx)(nil)
