// Package sqlexec runs ad-hoc SQL against a scoped connection or transaction.
package sqlexec

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Row is one result row keyed by column name.
type Row map[string]any

// WithConnection runs fn on a connection dedicated to this call.
// The connection is returned to the pool when fn returns, errors or panics.
func WithConnection(ctx context.Context, db *gorm.DB, fn func(conn *gorm.DB) error) error {
	return db.WithContext(ctx).Connection(fn)
}

// WithTransaction runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics; the error is returned
// unchanged and a panic is re-raised after the rollback.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// ExecuteQuery runs a parameterized read query in a transaction and returns every row.
func ExecuteQuery(ctx context.Context, db *gorm.DB, query string, args ...any) ([]Row, error) {
	var rows []Row
	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		var result []map[string]any
		if err := tx.Raw(query, args...).Scan(&result).Error; err != nil {
			return err
		}
		rows = make([]Row, len(result))
		for i, r := range result {
			rows[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// QueryCache stores read query results keyed by query text and arguments.
type QueryCache interface {
	Get(ctx context.Context, query string, args []any) ([]Row, bool, error)
	Set(ctx context.Context, query string, args []any, rows []Row) error
}

// Executor logs every statement it runs and serves repeated reads from an optional cache.
type Executor struct {
	db    *gorm.DB
	cache QueryCache
	log   *zap.Logger
}

// NewExecutor creates an Executor. cache may be nil.
func NewExecutor(db *gorm.DB, cache QueryCache, log *zap.Logger) *Executor {
	return &Executor{db: db, cache: cache, log: log}
}

// Query runs a read query, consulting the cache first when one is configured.
func (e *Executor) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	e.log.Info("executing query", zap.String("query", query), zap.Any("args", args))

	if e.cache != nil {
		rows, ok, err := e.cache.Get(ctx, query, args)
		if err != nil {
			e.log.Warn("query cache get error, falling back to database", zap.String("query", query), zap.Error(err))
		} else if ok {
			e.log.Debug("query cache hit", zap.String("query", query), zap.Int("rows", len(rows)))
			return rows, nil
		}
	}

	start := time.Now()
	rows, err := ExecuteQuery(ctx, e.db, query, args...)
	if err != nil {
		e.log.Error("query failed", zap.String("query", query), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}
	e.log.Debug("query finished", zap.String("query", query), zap.Int("rows", len(rows)), zap.Duration("elapsed", time.Since(start)))

	if e.cache != nil {
		if err := e.cache.Set(ctx, query, args, rows); err != nil {
			e.log.Warn("failed to cache query result", zap.String("query", query), zap.Error(err))
		}
	}
	return rows, nil
}

// Exec runs a write statement in a transaction and returns the number of affected rows.
// Results are never cached.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	e.log.Info("executing statement", zap.String("query", query), zap.Any("args", args))

	var affected int64
	err := WithTransaction(ctx, e.db, func(tx *gorm.DB) error {
		res := tx.Exec(query, args...)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		e.log.Error("statement failed", zap.String("query", query), zap.Error(err))
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	return affected, nil
}
