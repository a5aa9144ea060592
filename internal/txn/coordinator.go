package txn

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrLockBusy is returned by a Locker when the resource is held elsewhere.
// It is classified as transient so RunWithRetry backs off and tries again.
var ErrLockBusy = errors.New("resource lock busy")

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrLockDeadlock    = 1213
)

type Config struct {
	MaxRetries int           // retries after the first attempt, default 3
	BaseDelay  time.Duration // backoff base, default 50ms
	TxTimeout  time.Duration // per-transaction deadline, default 5s
}

// Coordinator runs every mutating engine operation inside exactly one
// transaction, retrying transient contention failures with exponential
// backoff plus jitter.
type Coordinator struct {
	db     *gorm.DB
	locker Locker
	cfg    Config
}

func NewCoordinator(db *gorm.DB, locker Locker, cfg Config) *Coordinator {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	if cfg.TxTimeout == 0 {
		cfg.TxTimeout = 5 * time.Second
	}
	return &Coordinator{db: db, locker: locker, cfg: cfg}
}

func (c *Coordinator) DB() *gorm.DB {
	return c.db
}

// Locker exposes the resource locker for operations that must take an
// additional lock inside an already-locked transaction.
func (c *Coordinator) Locker() Locker {
	return c.locker
}

// RunWithRetry executes op inside a scoped transaction. Transient failures
// (lock busy, lock wait timeout, deadlock, transaction deadline) roll back
// and retry; the last transient error surfaces after exhaustion. Any other
// error propagates immediately without retry.
func (c *Coordinator) RunWithRetry(ctx context.Context, op func(tx *gorm.DB) error) error {
	var last error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		txCtx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
		err := c.db.WithContext(txCtx).Transaction(op)
		cancel()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		last = err
		if attempt == c.cfg.MaxRetries {
			break
		}
		if err := sleep(ctx, backoffDelay(c.cfg.BaseDelay, attempt)); err != nil {
			return err
		}
	}
	return last
}

// RunLocked is RunWithRetry with a fail-fast resource lock held for the
// duration of the transaction. The lock serializes concurrent access to a
// single resource key (one stock pool, one order row).
func (c *Coordinator) RunLocked(ctx context.Context, key string, op func(tx *gorm.DB) error) error {
	return c.RunWithRetry(ctx, func(tx *gorm.DB) error {
		if err := c.locker.Acquire(tx, key); err != nil {
			return err
		}
		defer c.locker.Release(tx, key)
		return op(tx)
	})
}

// delay = base * 2^attempt + base*0.1*attempt, plus up to base/5 of jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := float64(base)*math.Pow(2, float64(attempt)) + float64(base)*0.1*float64(attempt)
	return time.Duration(d) + time.Duration(rand.Int63n(int64(base)/5+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTransient classifies contention-class failures that are safe to retry
// after rollback. Constraint violations and other fatal errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLockBusy) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrLockWaitTimeout || me.Number == mysqlErrLockDeadlock
	}
	return false
}
