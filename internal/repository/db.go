package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB wraps the ent SQL driver plus the pgx pool when running on Postgres.
type DB struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to Postgres for postgres:// DSNs and to SQLite otherwise
// (a file path, file: URI or ":memory:").
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if isPostgres(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "ecoscore"

	dialCtx, cancel := withTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, log: logger}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("connecting to database", "driver", "sqlite", "dsn", dsn)
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite from returning SQLITE_BUSY and keeps :memory: on a single connection
	db.SetMaxOpenConns(1)

	pingCtx, cancel := withTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), log: logger}, nil
}

// Dialect returns the ent dialect name in use.
func (d *DB) Dialect() string { return d.drv.Dialect() }

// Close closes the database connections gracefully.
func (d *DB) Close() {
	d.log.Info("closing database connections")
	if err := d.drv.Close(); err != nil {
		d.log.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.log.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := d.drv.DB().PingContext(ctx); err != nil {
		d.log.Error("database ping failed", "error", err)
		return err
	}
	d.log.Debug("database ping successful")
	return nil
}

// Migrate creates the records table when missing.
func (d *DB) Migrate(ctx context.Context) error {
	b := entsql.Dialect(d.Dialect())
	query, args := b.CreateTable(recordsTable).
		IfNotExists().
		Columns(
			entsql.Column(colID).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colUserID).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colKind).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colEntryDate).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colEmissions).Type("DOUBLE PRECISION"),
			entsql.Column(colPayload).Type("TEXT").Attr("NOT NULL"),
			entsql.Column(colCreatedAt).Type("BIGINT").Attr("NOT NULL"),
		).
		PrimaryKey(colID).
		Query()
	if _, err := d.drv.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create %s: %w", recordsTable, err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS records_user_kind ON %s (%s, %s, %s)",
		recordsTable, colUserID, colKind, colCreatedAt)
	if _, err := d.drv.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	d.log.Info("database migrated", "table", recordsTable)
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var errNoDB = errors.New("repository: nil database")
