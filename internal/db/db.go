package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"qaboard/internal/orm"
)

// Open connects to driver ("sqlite" or "pgx") and pings the database.
func Open(driver, dsn string) (*orm.DB, error) {
	dialect, err := orm.DialectFor(driver)
	if err != nil {
		return nil, err
	}
	// aliases resolve to the names the drivers register under
	name := "sqlite"
	if dialect == orm.Postgres {
		name = "pgx"
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == orm.SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return orm.New(db, dialect), nil
}

func Migrate(ctx context.Context, db *orm.DB) error {
	stmts := sqliteSchema
	if db.Dialect == orm.Postgres {
		stmts = postgresSchema
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS users(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS questions(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		answered BOOLEAN NOT NULL DEFAULT 0,
		asker_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS answers(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answer TEXT NOT NULL,
		selected BOOLEAN NOT NULL DEFAULT 0,
		answerer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS answers_one_selected ON answers(question_id) WHERE selected;`,
	`CREATE TABLE IF NOT EXISTS tags(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT UNIQUE NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS question_tags(
		question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY(question_id, tag_id)
	);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS questions(
		id BIGSERIAL PRIMARY KEY,
		question TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		answered BOOLEAN NOT NULL DEFAULT FALSE,
		asker_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS answers(
		id BIGSERIAL PRIMARY KEY,
		answer TEXT NOT NULL,
		selected BOOLEAN NOT NULL DEFAULT FALSE,
		answerer_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS answers_one_selected ON answers(question_id) WHERE selected;`,
	`CREATE TABLE IF NOT EXISTS tags(
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS question_tags(
		question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY(question_id, tag_id)
	);`,
}
