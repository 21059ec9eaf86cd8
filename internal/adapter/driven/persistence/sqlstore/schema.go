package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Statements are written with ? placeholders and rebound per driver.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS poll (
		room TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		sender_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		is_single_choice BOOLEAN NOT NULL DEFAULT FALSE,
		skippable BOOLEAN NOT NULL DEFAULT FALSE,
		is_approval_poll BOOLEAN NOT NULL DEFAULT FALSE,
		is_vote_changeable BOOLEAN NOT NULL DEFAULT TRUE,
		participants TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (room, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_poll_room_position ON poll(room, position)`,
	`CREATE TABLE IF NOT EXISTS poll_answer (
		room TEXT NOT NULL,
		poll_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		name TEXT NOT NULL,
		voters TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (room, poll_id, idx)
	)`,
}

// Open opens the database and creates the schema. Safe to call on an existing database.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported poll database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// modernc serialises writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}
	if err := CreateSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $1, $2... for postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
