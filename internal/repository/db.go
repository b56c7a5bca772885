package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Store is an open database: the remote Postgres store or the local sqlite cache.
type Store struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool and wraps it for the ent SQL driver.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "pnl-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &Store{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, logger: logger}, nil
}

// OpenSQLite opens (or creates) the local cache at path; ":memory:" works for tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: an in-memory database lives and dies with its connection,
	// and sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	logger.Debug("opened local store", "path", path)
	return &Store{drv: entsql.OpenDB(dialect.SQLite, db), logger: logger}, nil
}

// Dialect is the ent dialect name of the store.
func (s *Store) Dialect() string { return s.drv.Dialect() }

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.Dialect() == dialect.Postgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			s.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database connections gracefully
func (s *Store) Close() {
	s.logger.Info("closing database connections", "dialect", s.Dialect())
	if err := s.drv.Close(); err != nil {
		s.logger.Error("failed to close sql driver", "error", err)
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// HealthCheck pings the database within timeout.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.drv.DB().PingContext(ctx); err != nil {
		return err
	}
	s.logger.Debug("database ping successful")
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		closed_at TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		realized_pnl DOUBLE PRECISION NOT NULL,
		fees DOUBLE PRECISION,
		roi DOUBLE PRECISION,
		result TEXT NOT NULL,
		needs_review BOOLEAN NOT NULL DEFAULT FALSE,
		conf_timestamp TEXT NOT NULL,
		conf_symbol TEXT NOT NULL,
		conf_pnl TEXT NOT NULL,
		conf_overall TEXT NOT NULL,
		source_image_id TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		imported_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS trades_symbol_closed_at ON trades (symbol, closed_at)`,
	`CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// sqlite keeps instants as fixed-width UTC text so ordering and range
// comparisons work on the raw column.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		closed_at TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		realized_pnl REAL NOT NULL,
		fees REAL,
		roi REAL,
		result TEXT NOT NULL,
		needs_review INTEGER NOT NULL DEFAULT 0,
		conf_timestamp TEXT NOT NULL,
		conf_symbol TEXT NOT NULL,
		conf_pnl TEXT NOT NULL,
		conf_overall TEXT NOT NULL,
		source_image_id TEXT NOT NULL DEFAULT '',
		remarks TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		imported_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS trades_symbol_closed_at ON trades (symbol, closed_at)`,
	`CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timeArg encodes t for the store's column type.
func (s *Store) timeArg(t time.Time) any {
	if s.Dialect() == dialect.SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (s *Store) optionalTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

// dbTime scans either a native timestamp or the sqlite text encoding.
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		d.Time, d.Valid = v.UTC(), true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("scan time: unsupported type %T", src)
	}
}

func (d *dbTime) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan time %q: %w", s, err)
	}
	d.Time, d.Valid = t.UTC(), true
	return nil
}
