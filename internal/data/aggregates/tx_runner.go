package aggregates

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner provides a shared transaction boundary primitive for aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// TxOptions tunes the transactions a runner opens. Both fields only apply on
// Postgres; SQLite serializes writers at BEGIN.
type TxOptions struct {
	Isolation   domainagg.TxIsolation
	LockTimeout time.Duration
}

type gormTxRunner struct {
	db   *gorm.DB
	opts TxOptions
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// NewGormTxRunnerWithOptions is NewGormTxRunner with isolation and lock timeout.
func NewGormTxRunnerWithOptions(db *gorm.DB, opts TxOptions) TxRunner {
	return &gormTxRunner{db: db, opts: opts}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	postgres := isPostgres(r.db)

	var sqlOpts []*sql.TxOptions
	if postgres && r.opts.Isolation == domainagg.IsolationSerializable {
		sqlOpts = append(sqlOpts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if postgres && r.opts.LockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.opts.LockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	}, sqlOpts...)
}

func isPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}
