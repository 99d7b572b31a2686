package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type contextKey string

const (
	// ScopeKey is the context key for the request's database scope.
	ScopeKey contextKey = "dbScope"
	// TxKey is the context key for the active transaction, if any.
	TxKey contextKey = "dbTx"
)

// Querier is the subset of pgx shared by *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetScope retrieves the request scope from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok
}

// SetScope stores the request scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

// GetQuerier returns the active transaction if one is open in ctx, otherwise
// the scope's connection. Returns false when ctx carries neither.
func GetQuerier(ctx context.Context) (Querier, bool) {
	if tx, ok := ctx.Value(TxKey).(pgx.Tx); ok {
		return tx, true
	}
	scope, ok := GetScope(ctx)
	if !ok || scope.Conn == nil {
		return nil, false
	}
	return scope.Conn, true
}

// ScopeProvider creates scoped contexts for work that runs outside an HTTP
// request, such as startup seeding.
type ScopeProvider struct {
	db *DB
}

// NewScopeProvider creates a ScopeProvider for the given database.
func NewScopeProvider(db *DB) *ScopeProvider {
	return &ScopeProvider{db: db}
}

// WithScope returns a context carrying a fresh scope.
// The cleanup function must be called when the scope is no longer needed.
func (p *ScopeProvider) WithScope(ctx context.Context) (context.Context, func(), error) {
	scope, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetScope(ctx, scope), func() { scope.Close() }, nil
}
