// Package store opens the two databases of a migration: the legacy SQLite
// file as the source and the PostgreSQL pool as the destination.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// OpenSource opens the SQLite database at path read-only.
// The file must exist; a missing path is reported instead of letting the
// driver create an empty database.
func OpenSource(ctx context.Context, path string) (*sql.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source database %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source database %s: is a directory", path)
	}

	dsn := (&url.URL{Scheme: "file", Opaque: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}
	// One reader; cursors are consumed sequentially
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping source database: %w", err)
	}
	return db, nil
}
