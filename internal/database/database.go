package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"

	pgxzerolog "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/tern/v2/migrate"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const versionTable = "clett_schema_version"

// RunMigrations applies pending schema migrations to the configured
// database. Ingest tables (acct_ledger, sales_txn, mkt_perf) are not managed
// here; the loader creates them on demand.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	conn, err := pgx.Connect(ctx, cfg.URL())
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer conn.Close(ctx)

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("new migrator: %w", err)
	}
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	if err := migrator.LoadMigrations(sub); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewPool builds the shared pgx pool. Query tracing goes to New Relic when
// observability is enabled, otherwise to zerolog.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pc.MaxConns = int32(cfg.Database.MaxConns)

	if cfg.Observability != nil && cfg.Observability.Enabled {
		pc.ConnConfig.Tracer = nrpgx5.NewTracer()
	} else {
		logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "pgx").Logger()
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   pgxzerolog.NewLogger(logger),
			LogLevel: tracelog.LogLevelWarn,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
