package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/infra/repository"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin  = errs.New("failed to begin transaction")
	errTransactionCommit = errs.New("failed to commit transaction")

	ErrTransactionContended = errs.NewReason("TRANSACTION_CONTENDED", errs.ErrTransient, "transaction kept conflicting with concurrent writers, retry later")
)

type RetryPolicy struct {
	MaxRetries             int
	SerializableMaxRetries int
	BaseBackoff            time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:             3,
		SerializableMaxRetries: 5,
		BaseBackoff:            100 * time.Millisecond,
	}
}

type PostgresUoW struct {
	pool   *pgxpool.Pool
	policy RetryPolicy
}

func NewPostgresUoW(pool *pgxpool.Pool, policy RetryPolicy) shared.UnitOfWork {
	return &PostgresUoW{
		pool:   pool,
		policy: policy,
	}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, u.policy.MaxRetries, fn)
}

// Serializable isolation for read-count-insert sequences on shared counters.
// SSI aborts are expected under contention and retried here.
func (u *PostgresUoW) WithinSerializable(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, u.policy.SerializableMaxRetries, fn)
}

// Read-only transaction for consistent multi-table snapshots
func (u *PostgresUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runReadOnlyTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, maxRetries int, fn func(ctx context.Context, tx shared.Tx) error) error {
	for attempt := 0; ; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return infra.WrapRepoErr("begin transaction", errs.Mark(err, errTransactionBegin))
		}

		err = fn(ctx, newPgTx(pgxTx))
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = errs.Mark(err, errTransactionCommit)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !isRetryableError(err) {
			return err
		}
		if attempt >= maxRetries {
			slog.Error("transaction failed after max retries",
				"attempts", attempt+1,
				"isolation", string(options.IsoLevel),
				"error", err.Error())
			return errs.Wrapf(ErrTransactionContended, "after %d attempts: %v", attempt+1, err)
		}

		waitTime := calculateBackoff(attempt, u.policy.BaseBackoff)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"isolation", string(options.IsoLevel),
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

func (u *PostgresUoW) runReadOnlyTx(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return infra.WrapRepoErr("begin read-only transaction", errs.Mark(err, errTransactionBegin))
	}

	defer func() {
		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("failed to rollback read-only transaction", "error", rollbackErr.Error())
			}
		}
	}()

	if err := fn(ctx, newPgTx(pgxTx)); err != nil {
		return err
	}

	return pgxTx.Commit(ctx)
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- masked to a non-negative value above
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx db.DBTX

	// Lazy-initialized repositories
	carts       shared.CartRepository
	catalog     shared.CatalogReader
	coupons     shared.CouponRepository
	redemptions shared.RedemptionRepository
	intents     shared.IntentRepository
	orders      shared.OrderRepository
	audit       shared.AuditRepository
	outbox      shared.OutboxRepository
}

func newPgTx(dbtx db.DBTX) *pgTx {
	return &pgTx{dbtx: dbtx}
}

func (t *pgTx) Carts() shared.CartRepository {
	if t.carts == nil {
		t.carts = repository.NewCartRepository(t.dbtx)
	}
	return t.carts
}

func (t *pgTx) Catalog() shared.CatalogReader {
	if t.catalog == nil {
		t.catalog = repository.NewCatalogRepository(t.dbtx)
	}
	return t.catalog
}

func (t *pgTx) Coupons() shared.CouponRepository {
	if t.coupons == nil {
		t.coupons = repository.NewCouponRepository(t.dbtx)
	}
	return t.coupons
}

func (t *pgTx) Redemptions() shared.RedemptionRepository {
	if t.redemptions == nil {
		t.redemptions = repository.NewRedemptionRepository(t.dbtx)
	}
	return t.redemptions
}

func (t *pgTx) Intents() shared.IntentRepository {
	if t.intents == nil {
		t.intents = repository.NewIntentRepository(t.dbtx)
	}
	return t.intents
}

func (t *pgTx) Orders() shared.OrderRepository {
	if t.orders == nil {
		t.orders = repository.NewOrderRepository(t.dbtx)
	}
	return t.orders
}

func (t *pgTx) Audit() shared.AuditRepository {
	if t.audit == nil {
		t.audit = repository.NewAuditRepository(t.dbtx)
	}
	return t.audit
}

func (t *pgTx) Outbox() shared.OutboxRepository {
	if t.outbox == nil {
		t.outbox = repository.NewOutboxRepository(t.dbtx)
	}
	return t.outbox
}

// AdvisoryLock serialises work on one key until commit or rollback. Keys are
// hashed to the 64-bit space pg_advisory_xact_lock expects.
func (t *pgTx) AdvisoryLock(ctx context.Context, key string) error {
	if _, err := t.dbtx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return infra.WrapRepoErr("failed to take advisory lock", err)
	}
	return nil
}
