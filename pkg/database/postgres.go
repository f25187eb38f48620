package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/chilahati-archive-api/pkg/config"
	"github.com/noah-isme/chilahati-archive-api/pkg/database/migrations"
)

// ErrClosed is returned by a Handle after Close.
var ErrClosed = errors.New("database handle closed")

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Handle is a process-wide, lazily initialised connection. The first caller
// of DB connects, pings and migrates; concurrent callers wait for that
// attempt. A failed attempt leaves the handle empty so the next call retries.
type Handle struct {
	mu     sync.Mutex
	db     *sqlx.DB
	closed bool
	open   func(ctx context.Context) (*sqlx.DB, error)
	logger *zap.Logger
}

// NewHandle builds a lazy handle for the given configuration.
func NewHandle(cfg config.DatabaseConfig, logger *zap.Logger) *Handle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handle{
		logger: logger,
		open: func(ctx context.Context) (*sqlx.DB, error) {
			db, err := NewPostgres(ctx, cfg)
			if err != nil {
				return nil, err
			}
			if cfg.MigrateOnStart {
				if err := Migrate(ctx, db.DB); err != nil {
					_ = db.Close()
					return nil, err
				}
			}
			return db, nil
		},
	}
}

// NewStaticHandle wraps an already open connection.
func NewStaticHandle(db *sqlx.DB) *Handle {
	return &Handle{db: db, logger: zap.NewNop()}
}

// DB returns the shared connection, initialising it on first use.
func (h *Handle) DB(ctx context.Context) (*sqlx.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if h.db != nil {
		return h.db, nil
	}
	if h.open == nil {
		return nil, errors.New("database handle not configured")
	}

	start := time.Now()
	db, err := h.open(ctx)
	if err != nil {
		h.logger.Warn("database connect failed", zap.Error(err))
		return nil, fmt.Errorf("connect database: %w", err)
	}
	h.db = db
	h.logger.Info("database connected", zap.Duration("elapsed", time.Since(start)))
	return h.db, nil
}

// Ping reports whether the database is reachable, connecting if needed.
func (h *Handle) Ping(ctx context.Context) error {
	db, err := h.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the connection. Subsequent DB calls fail with ErrClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
