package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the JSONB document table backing pgstore.
//
//go:embed schema.sql
var Schema string

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("db: acquire conn: %w", err)
	}
	defer conn.Release()

	sql := strings.TrimSpace(Schema)
	if sql == "" {
		return fmt.Errorf("db: no schema to apply")
	}

	// Simple protocol so the multi-statement script runs in one round trip.
	res := conn.Conn().PgConn().Exec(ctx, sql)
	if _, err := res.ReadAll(); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}
