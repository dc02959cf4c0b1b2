package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//nolint:lll // ok for interface
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgx.Conn)(nil)
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = pgx.Tx(nil)
)

// TxStarter is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs f inside a transaction on db. The transaction is committed if
// f returns nil and rolled back otherwise.
func InTx(ctx context.Context, db TxStarter, f func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db, f)
}
