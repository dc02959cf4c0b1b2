package postgres

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/iracelog-league-stats/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

func WithTracer(tracer pgx.QueryTracer) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = tracer
	}
}

func WithMaxConns(n int32) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// InitWithURL creates a connection pool and checks the connection.
func InitWithURL(ctx context.Context, url string, opts ...PoolConfigOption) (
	*pgxpool.Pool, error,
) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewOtlpTracer() pgx.QueryTracer {
	return otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters())
}

// NewLogTracer logs every statement with the given level.
func NewLogTracer(logger *log.Logger, level log.Level) pgx.QueryTracer {
	return &logTracer{log: logger, level: level}
}

type logTracer struct {
	log   *log.Logger
	level log.Level
}

type traceStartKey struct{}

//nolint:whitespace // can't make both editor and linter happy
func (t *logTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	fields := []log.Field{log.String("sql", data.SQL), log.Any("args", data.Args)}
	if t.level == log.DebugLevel {
		t.log.Debug("Executing", fields...)
	} else {
		t.log.Info("Executing", fields...)
	}
	return context.WithValue(ctx, traceStartKey{}, data.SQL)
}

//nolint:whitespace // can't make both editor and linter happy
func (t *logTracer) TraceQueryEnd(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	if data.Err == nil {
		return
	}
	sql, _ := ctx.Value(traceStartKey{}).(string)
	t.log.Warn("Statement failed",
		log.String("sql", sql),
		log.ErrorField(data.Err))
}
