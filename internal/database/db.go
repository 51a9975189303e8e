package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
	_ "modernc.org/sqlite"

	"github.com/helpify-project/pairlink/internal/database/migrations"
)

const sqlitePrefix = "sqlite:"

// DB is an open database together with the goose dialect it speaks.
type DB struct {
	*bun.DB

	dialect string
	closers []io.Closer
}

// Open connects to uri, which is either a postgres:// URI or sqlite:<path>.
// With debug set, every query is logged through zap.
func Open(ctx context.Context, uri string, debug bool) (db *DB, err error) {
	db = &DB{}

	if strings.HasPrefix(uri, sqlitePrefix) {
		var sqldb *sql.DB
		if sqldb, err = openSQLite(ctx, strings.TrimPrefix(uri, sqlitePrefix)); err != nil {
			return nil, err
		}
		db.DB = bun.NewDB(sqldb, sqlitedialect.New())
		db.dialect = "sqlite3"
	} else {
		var dbConfig *pgx.ConnConfig
		if dbConfig, err = pgx.ParseConfig(uri); err != nil {
			return nil, fmt.Errorf("unable to parse postgres uri: %w", err)
		}
		db.DB = bun.NewDB(stdlib.OpenDB(*dbConfig), pgdialect.New())
		db.dialect = "postgres"
	}

	if debug {
		dbLogger := &zapio.Writer{Log: zap.L().With(zap.String("section", "bun")), Level: zapcore.DebugLevel}
		db.closers = append(db.closers, dbLogger)

		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.WithWriter(dbLogger),
		))
	}

	if _, err = db.ExecContext(ctx, "SELECT 1"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to test database connection: %w", err)
	}
	return db, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps modernc from reporting "database is locked".
	sqldb.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := sqldb.ExecContext(ctx, pragma); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
		}
	}
	return sqldb, nil
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate() error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(zap.L().With(zap.String("section", "goose"))))

	if err := goose.SetDialect(db.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db.DB.DB, "."); err != nil {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}
	return nil
}

func (db *DB) Close() (err error) {
	err = db.DB.Close()
	for _, c := range db.closers {
		_ = c.Close()
	}
	return
}
