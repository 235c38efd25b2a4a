package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

// NewSQLiteDB opens the SQLite database at path with the given configuration.
func NewSQLiteDB(path string, cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"file:%s?_txlock=immediate&_journal_mode=%s&_busy_timeout=%d&_synchronous=%s",
		path,
		cfg.JournalMode,
		cfg.BusyTimeout,
		cfg.Synchronous,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	// cache_size is per connection, the DSN does not carry it
	if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSize)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragma: %w", err)
	}

	return db, nil
}
