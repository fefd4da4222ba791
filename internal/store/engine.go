// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store

import (
	"net/url"
	"strings"

	"github.com/samber/oops"
)

// Engine identifies a storage backend.
type Engine string

// Supported engines.
const (
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// sqlitePragmas are applied to every SQLite connection.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// EngineFor selects the engine from the database URL scheme.
func EngineFor(databaseURL string) (Engine, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", oops.Code("DATABASE_URL_INVALID").Wrap(err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql", "pgx5":
		return EnginePostgres, nil
	case "sqlite":
		return EngineSQLite, nil
	default:
		return "", oops.Code("DATABASE_URL_INVALID").
			With("scheme", u.Scheme).
			Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// migrateURL rewrites a database URL for the golang-migrate driver of its engine.
func migrateURL(engine Engine, databaseURL string) string {
	if engine != EnginePostgres {
		return databaseURL
	}
	// The pgx/v5 driver expects the pgx5:// scheme.
	if rest, found := strings.CutPrefix(databaseURL, "postgres://"); found {
		return "pgx5://" + rest
	}
	if rest, found := strings.CutPrefix(databaseURL, "postgresql://"); found {
		return "pgx5://" + rest
	}
	return databaseURL
}

// postgresDSN rewrites a database URL for pgx, which does not know pgx5://.
func postgresDSN(databaseURL string) string {
	if rest, found := strings.CutPrefix(databaseURL, "pgx5://"); found {
		return "postgres://" + rest
	}
	return databaseURL
}

// sqliteDSN turns sqlite://path into a modernc.org/sqlite DSN with pragmas.
func sqliteDSN(databaseURL string) (string, error) {
	path, _ := strings.CutPrefix(databaseURL, "sqlite://")
	path, _, _ = strings.Cut(path, "?")
	if strings.TrimSpace(path) == "" {
		return "", oops.Code("DATABASE_URL_INVALID").Errorf("sqlite path is required")
	}
	return "file:" + path + "?" + sqlitePragmas, nil
}
