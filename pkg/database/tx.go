package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/retry"
)

// Transactor runs fn atomically. fn receives a context whose repositories
// operate inside the transaction; returning an error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxTransactor begins transactions on the request scope's connection.
// Serialization failures and deadlocks are retried with the retry config.
type PgxTransactor struct {
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewTransactor creates a Transactor. A nil retryCfg uses retry.DefaultConfig.
func NewTransactor(retryCfg *retry.Config, logger *zap.Logger) *PgxTransactor {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &PgxTransactor{retryCfg: retryCfg, logger: logger}
}

// WithinTx runs fn in a transaction. A nested call joins the outer transaction.
func (t *PgxTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(TxKey).(pgx.Tx); ok {
		return fn(ctx)
	}

	scope, ok := GetScope(ctx)
	if !ok || scope.Conn == nil {
		return fmt.Errorf("no database scope in context")
	}

	attempt := 0
	return retry.DoIfRetryable(ctx, t.retryCfg, func() error {
		attempt++
		if attempt > 1 {
			t.logger.Warn("Retrying transaction", zap.Int("attempt", attempt))
		}
		err := t.runOnce(ctx, scope, fn)
		if IsSerializationFailure(err) {
			return &conflictError{err: err}
		}
		return err
	})
}

// conflictError marks a transaction conflict as retryable for pkg/retry.
type conflictError struct {
	err error
}

func (e *conflictError) Error() string     { return e.err.Error() }
func (e *conflictError) Unwrap() error     { return e.err }
func (e *conflictError) IsRetryable() bool { return true }

func (t *PgxTransactor) runOnce(ctx context.Context, scope *Scope, fn func(ctx context.Context) error) (err error) {
	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ Transactor = (*PgxTransactor)(nil)

// Postgres error codes the repositories inspect.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraint is non-empty the violated constraint must match it.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsSerializationFailure reports whether err is a retryable transaction
// conflict.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
