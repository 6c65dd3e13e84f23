package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries runs the application's SQL against a pool or a transaction.
// Optional columns are only referenced when caps says they exist.
type Queries struct {
	db   DBTX
	caps Capabilities
}

// New returns Queries that assume every optional column exists.
func New(db DBTX) *Queries {
	return &Queries{db: db, caps: AllCapabilities()}
}

// NewWithCapabilities returns Queries restricted to the probed schema.
func NewWithCapabilities(db DBTX, caps Capabilities) *Queries {
	return &Queries{db: db, caps: caps}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx, caps: q.caps}
}

// Capabilities reports the schema capabilities q was built with.
func (q *Queries) Capabilities() Capabilities {
	return q.caps
}
