package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestApplyMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))

	v, err := currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	for _, table := range []string{"schema_version", "embedding_cache", "cache_meta"} {
		assert.True(t, tableExists(t, db, table), "table %s", table)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestMigrationsUpgradeFromPartial(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	// simulate a database created before 1.1.0
	_, err := db.Exec(migrationV1Up)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO schema_version (version) VALUES ('1.0.0')")
	require.NoError(t, err)
	assert.False(t, tableExists(t, db, "cache_meta"))

	require.NoError(t, ApplyMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "cache_meta"))
}

func TestRollbackMigration(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db))
	assert.False(t, tableExists(t, db, "cache_meta"))
	assert.True(t, tableExists(t, db, "embedding_cache"))

	v, err := currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, RollbackMigration(ctx, db))
	assert.False(t, tableExists(t, db, "schema_version"))

	assert.Error(t, RollbackMigration(ctx, db))
}
