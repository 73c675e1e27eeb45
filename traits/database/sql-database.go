package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the SQLite database and makes sure the schema exists.
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := CreateTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// CreateTables creates all necessary tables
func CreateTables(db *sql.DB) error {
	tables := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		{"users", createUsersTable},
		{"subscriptions", createSubscriptionsTable},
		{"recommendations", createRecommendationsTable},
		{"notified_warnings", createNotifiedWarningsTable},
	}

	for _, table := range tables {
		if err := table.fn(db); err != nil {
			return fmt.Errorf("create %s table: %w", table.name, err)
		}
	}

	return nil
}

func createUsersTable(db *sql.DB) error {
	const stmt = `
	CREATE TABLE IF NOT EXISTS users (
		chat_id          INTEGER PRIMARY KEY,
		state            INTEGER NOT NULL DEFAULT 0,
		receive_warnings INTEGER NOT NULL DEFAULT 1,
		last_message_id  INTEGER,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TRIGGER IF NOT EXISTS trg_users_updated_at
	AFTER UPDATE ON users
	FOR EACH ROW
	BEGIN
	  UPDATE users SET updated_at = CURRENT_TIMESTAMP WHERE chat_id = NEW.chat_id;
	END;
	`
	_, err := db.Exec(stmt)
	return err
}

func createSubscriptionsTable(db *sql.DB) error {
	const stmt = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id  INTEGER NOT NULL,
		location TEXT NOT NULL,
		category TEXT NOT NULL,
		level    INTEGER NOT NULL,
		PRIMARY KEY (chat_id, location, category)
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_chat ON subscriptions(chat_id);
	`
	_, err := db.Exec(stmt)
	return err
}

func createRecommendationsTable(db *sql.DB) error {
	const stmt = `
	CREATE TABLE IF NOT EXISTS recommendations (
		chat_id  INTEGER NOT NULL,
		position INTEGER NOT NULL,
		location TEXT NOT NULL,
		PRIMARY KEY (chat_id, position)
	);
	`
	_, err := db.Exec(stmt)
	return err
}

func createNotifiedWarningsTable(db *sql.DB) error {
	const stmt = `
	CREATE TABLE IF NOT EXISTS notified_warnings (
		chat_id     INTEGER NOT NULL,
		warning_id  TEXT NOT NULL,
		notified_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, warning_id)
	);
	CREATE INDEX IF NOT EXISTS idx_notified_warnings_time ON notified_warnings(notified_at);
	`
	_, err := db.Exec(stmt)
	return err
}
