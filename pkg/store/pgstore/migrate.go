package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migration commands accepted by Migrate.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
	MigrateReset  = "reset"
)

var commands = map[string]func(ctx context.Context, db *sql.DB, dir string) error{
	MigrateUp:     func(ctx context.Context, db *sql.DB, dir string) error { return goose.UpContext(ctx, db, dir) },
	MigrateDown:   func(ctx context.Context, db *sql.DB, dir string) error { return goose.DownContext(ctx, db, dir) },
	MigrateStatus: func(ctx context.Context, db *sql.DB, dir string) error { return goose.StatusContext(ctx, db, dir) },
	MigrateReset:  func(ctx context.Context, db *sql.DB, dir string) error { return goose.ResetContext(ctx, db, dir) },
}

type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// goose keeps its dialect, table and filesystem in package globals.
var gooseMu sync.Mutex

// Migrate runs a goose command against the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log logger, command string) error {
	run, ok := commands[command]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMigrationCommand, command)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := run(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseLogger routes goose output to slog.
type gooseLogger struct {
	log logger
}

func (a *gooseLogger) Fatalf(format string, v ...any) {
	a.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (a *gooseLogger) Printf(format string, v ...any) {
	a.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
