// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store

import (
	"context"
	"database/sql"

	"github.com/samber/oops"
	// Register the modernc.org/sqlite driver as "sqlite".
	_ "modernc.org/sqlite"
)

// OpenSQLite opens the database file named by a sqlite:// URL with foreign
// keys enabled and WAL journaling.
func OpenSQLite(ctx context.Context, databaseURL string, opts ConnectOptions) (*sql.DB, error) {
	opts = opts.withDefaults()

	dsn, err := sqliteDSN(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("engine", string(EngineSQLite)).Wrap(err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := pingWithRetry(ctx, db.PingContext, opts); err != nil {
		_ = db.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("engine", string(EngineSQLite)).Wrap(err)
	}
	return db, nil
}
