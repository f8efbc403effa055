// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/turntable/pkg/storage/sqlstore"
)

const memoryPath = ":memory:"

// Driver implements storage.Driver using SQLite.
type Driver struct {
	*sqlstore.Store
}

// NewDriver opens (and migrates) the turn database at dbPath, creating
// missing parent directories. dbPath may also be ":memory:".
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(ctx, db, sqlstore.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Store: store}, nil
}

// dsn adds the connection parameters go-sqlite3 applies on every new
// connection. File databases run in WAL mode and wait on a locked database
// instead of failing, since a chat session and a history listing may share
// the file.
func dsn(dbPath string) string {
	params := []string{"_foreign_keys=on"}
	if dbPath != memoryPath {
		params = append(params, "_journal_mode=WAL", "_busy_timeout=5000")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}
