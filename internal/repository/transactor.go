package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Transactor runs a function inside one database transaction. Any error
// aborts the whole unit; nothing is persisted.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(q DBTX) error) error
}

type sqlxTransactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &sqlxTransactor{db: db}
}

func (t *sqlxTransactor) WithinTx(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
