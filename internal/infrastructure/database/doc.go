// Package database provides SQLite connectivity for the greenhouse
// gateway's alert history store.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configured for
// a single low-write-rate embedded database: WAL mode, busy timeout, one
// pooled connection, restrictive file permissions.
//
// # Migrations
//
// Schema migrations are embedded into the binary by the migrations
// package and applied on startup via Migrate. Each migration runs in its
// own transaction; a failed migration rolls back alone and Migrate can
// be re-run after the fix.
//
// # Usage
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
