package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open connects to the configured database. For postgres the returned pool
// is the underlying pgx pool; for sqlite it is nil.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	if cfg.Driver == "sqlite" {
		db, err := OpenSQLite(cfg.SQLitePath, logger)
		return db, nil, err
	}
	return OpenPostgres(ctx, cfg, logger)
}

// OpenPostgres creates a pgx pool and wraps it as *sql.DB, returning both.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "expenseflow-ocr"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return db, pool, nil
}

// OpenSQLite opens a file-backed sqlite database for single-node and
// development deployments.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("connecting to database", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close closes the database connections gracefully.
func Close(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing database connections")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

// migrationDDL is portable across postgres and sqlite.
var migrationDDL = []string{
	`CREATE TABLE IF NOT EXISTS scan_jobs (
		id             TEXT PRIMARY KEY,
		filename       TEXT NOT NULL,
		format         TEXT NOT NULL,
		status         TEXT NOT NULL,
		raw_text       TEXT,
		extracted_json TEXT,
		confidence     INTEGER,
		error_message  TEXT,
		started_at     TIMESTAMP NOT NULL,
		finished_at    TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_jobs_status ON scan_jobs (status)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_jobs_started_at ON scan_jobs (started_at)`,
}

// Migrate brings the schema up to date. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	for _, stmt := range migrationDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration statement failed", "error", err)
			return err
		}
	}
	logger.Info("database schema up to date")
	return nil
}
