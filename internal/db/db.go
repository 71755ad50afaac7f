// Package db provides the typed query layer over the catalogue schema.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx behavior the queries need, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New creates a Queries value bound to the given connection or pool.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries executes the catalogue's static statements.
type Queries struct {
	db DBTX
}

// WithTx returns a Queries bound to the transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
