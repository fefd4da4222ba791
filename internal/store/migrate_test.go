// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/pkg/errutil"
)

func TestNewMigrator_UnsupportedScheme(t *testing.T) {
	_, err := NewMigrator("mysql://localhost/db")
	require.Error(t, err)
	// The deepest code wins, so the URL problem is reported.
	errutil.AssertErrorCode(t, err, "DATABASE_URL_INVALID")
	errutil.AssertErrorContext(t, err, "operation", "select engine")
}

func TestNewMigrator_PostgresUnreachable(t *testing.T) {
	// postgresql:// is rewritten to pgx5://, so the failure is the connection,
	// not an unknown driver.
	_, err := NewMigrator("postgresql://localhost:1/testdb?connect_timeout=1")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

func TestNewMigrator_SQLiteRoundTrip(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "migrate.db")

	m, err := NewMigrator(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	assert.Equal(t, EngineSQLite, m.Engine())

	pending, err := m.PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, pending)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second Up is a no-op")

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	applied, err := m.AppliedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, applied)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func newMockMigrator(mock *mockMigrate) *Migrator {
	return &Migrator{m: mock, engine: EnginePostgres}
}

func TestMigrator_Operations(t *testing.T) {
	tests := []struct {
		name     string
		mock     *mockMigrate
		run      func(*Migrator) error
		wantCode string
	}{
		{"up", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up error", &mockMigrate{upErr: errors.New("database locked")}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down", &mockMigrate{}, (*Migrator).Down, ""},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down error", &mockMigrate{downErr: errors.New("constraint violation")}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
		{"steps", &mockMigrate{}, func(m *Migrator) error { return m.Steps(1) }, ""},
		{"steps no change", &mockMigrate{stepsErr: migrate.ErrNoChange}, func(m *Migrator) error { return m.Steps(0) }, ""},
		{"steps error", &mockMigrate{stepsErr: errors.New("invalid step")}, func(m *Migrator) error { return m.Steps(-1) }, "MIGRATION_STEPS_FAILED"},
		{"force", &mockMigrate{}, func(m *Migrator) error { return m.Force(1) }, ""},
		{"force error", &mockMigrate{forceErr: errors.New("bad")}, func(m *Migrator) error { return m.Force(1) }, "MIGRATION_FORCE_FAILED"},
		{"force negative", &mockMigrate{}, func(m *Migrator) error { return m.Force(-1) }, "INVALID_VERSION"},
		{"close", &mockMigrate{}, (*Migrator).Close, ""},
		{"close source error", &mockMigrate{closeSourceErr: errors.New("source")}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
		{"close database error", &mockMigrate{closeDbErr: errors.New("db")}, (*Migrator).Close, "MIGRATION_CLOSE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newMockMigrator(tt.mock))
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_Close_BothErrors(t *testing.T) {
	err := newMockMigrator(&mockMigrate{
		closeSourceErr: errors.New("source close failed"),
		closeDbErr:     errors.New("db close failed"),
	}).Close()
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "component", "both")
	assert.Contains(t, err.Error(), "source close failed")
	assert.Contains(t, err.Error(), "db close failed")
}

func TestMigrator_Version(t *testing.T) {
	t.Run("reports version and dirty flag", func(t *testing.T) {
		v, dirty, err := newMockMigrator(&mockMigrate{versionVal: 2, dirty: true}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("nil version is zero", func(t *testing.T) {
		v, dirty, err := newMockMigrator(&mockMigrate{versionErr: migrate.ErrNilVersion}).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := newMockMigrator(&mockMigrate{versionErr: errors.New("connection lost")}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_PendingAndApplied(t *testing.T) {
	tests := []struct {
		name        string
		mock        *mockMigrate
		wantPending []uint
		wantApplied []uint
	}{
		{"fresh database", &mockMigrate{versionErr: migrate.ErrNilVersion}, []uint{1, 2}, nil},
		{"partially migrated", &mockMigrate{versionVal: 1}, []uint{2}, []uint{1}},
		{"at latest", &mockMigrate{versionVal: 2}, nil, []uint{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockMigrator(tt.mock)

			pending, err := m.PendingMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.wantPending, pending)

			applied, err := m.AppliedMigrations()
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
		})
	}

	t.Run("version error carries operation", func(t *testing.T) {
		m := newMockMigrator(&mockMigrate{versionErr: errors.New("connection lost")})

		_, err := m.PendingMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get pending migrations")

		_, err = m.AppliedMigrations()
		errutil.AssertErrorContext(t, err, "operation", "get applied migrations")
	})
}

func TestMigrationName(t *testing.T) {
	for _, engine := range []Engine{EnginePostgres, EngineSQLite} {
		tests := []struct {
			version  uint
			expected string
		}{
			{1, "000001_create_users"},
			{2, "000002_create_access_tokens"},
			{999, ""},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s_version_%d", engine, tt.version), func(t *testing.T) {
				name, err := MigrationName(engine, tt.version)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, name)
			})
		}
	}
}

func TestAllMigrationVersions(t *testing.T) {
	t.Run("engines share version numbers", func(t *testing.T) {
		pg, err := allMigrationVersions(EnginePostgres)
		require.NoError(t, err)
		lite, err := allMigrationVersions(EngineSQLite)
		require.NoError(t, err)
		assert.Equal(t, pg, lite)
	})

	t.Run("returns a copy", func(t *testing.T) {
		v1, err := allMigrationVersions(EnginePostgres)
		require.NoError(t, err)
		require.NotEmpty(t, v1)
		original := v1[0]
		v1[0] = 99999

		v2, err := allMigrationVersions(EnginePostgres)
		require.NoError(t, err)
		assert.Equal(t, original, v2[0])
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := allMigrationVersions(Engine("oracle"))
		errutil.AssertErrorCode(t, err, "MIGRATION_LIST_FAILED")
	})
}
