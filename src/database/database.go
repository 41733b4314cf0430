package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/username/tidyguru/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		last_seen_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'auto',
		row_count INTEGER NOT NULL DEFAULT 0,
		columns_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uploads_user_created ON uploads(user_id, created_at);

	CREATE TABLE IF NOT EXISTS sales_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		upload_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		date TEXT NOT NULL,
		product TEXT NOT NULL,
		amount REAL NOT NULL DEFAULT 0,
		refund REAL NOT NULL DEFAULT 0,
		fees REAL NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0,
		raw_data TEXT NOT NULL DEFAULT '{}',
		FOREIGN KEY(upload_id) REFERENCES uploads(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sales_data_upload_date ON sales_data(upload_id, date, row_index);

	CREATE TABLE IF NOT EXISTS user_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE,
		whop_user_id TEXT,
		whop_membership_id TEXT,
		product_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		current_period_end TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		whop_user_id TEXT,
		whop_membership_id TEXT NOT NULL UNIQUE,
		product_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		current_period_end TEXT,
		email TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

// Open opens the sqlite database at path and ensures the schema exists.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY under concurrent uploads.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	migrateUploadsTable(db)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logger.L.Info("Database tables ensured/created.")
	return db, nil
}

// InitDB opens the application database into DB and exits on failure.
func InitDB(databasePath string) {
	db, err := Open(databasePath)
	if err != nil {
		logger.L.Error("Database initialization failed", "error", err)
		stdlog.Fatalf("database initialization failed: %v", err)
	}
	DB = db
}

// migrateUploadsTable adds columns introduced after the first uploads schema.
func migrateUploadsTable(db *sql.DB) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='uploads'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.L.Info("'uploads' table does not exist, no migration needed as table will be created.")
			return
		}
		logger.L.Error("Error checking for 'uploads' table", "error", err)
		return
	}

	rows, err := db.Query("PRAGMA table_info(uploads)")
	if err != nil {
		logger.L.Error("Error querying table schema for 'uploads'", "error", err)
		return
	}
	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for 'uploads'", "error", err)
			rows.Close()
			return
		}
		columnExists[name] = true
	}
	rows.Close()

	migrations := []struct {
		column string
		ddl    string
	}{
		{"source", "ALTER TABLE uploads ADD COLUMN source TEXT NOT NULL DEFAULT 'auto'"},
		{"columns_json", "ALTER TABLE uploads ADD COLUMN columns_json TEXT NOT NULL DEFAULT '[]'"},
	}
	for _, m := range migrations {
		if columnExists[m.column] {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			logger.L.Error("Error adding column to 'uploads' table", "column", m.column, "error", err)
		} else {
			logger.L.Info("Added column to 'uploads' table", "column", m.column)
		}
	}
}
