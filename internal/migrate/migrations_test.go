package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/db"
	"launchpad/internal/migrate"
)

func TestMigrationsOrdered(t *testing.T) {
	ms, err := migrate.Migrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ms), 2)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Equal(t, "0001_init.sql", ms[0].Name)
}

func TestMigrateContextAppliesOnce(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()

	v, err := migrate.Version(ctx, conn)
	require.NoError(t, err)
	assert.Zero(t, v)

	applied, err := migrate.MigrateContext(ctx, conn)
	require.NoError(t, err)
	ms, err := migrate.Migrations()
	require.NoError(t, err)
	assert.Len(t, applied, len(ms))

	v, err = migrate.Version(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, ms[len(ms)-1].Version, v)

	applied, err = migrate.MigrateContext(ctx, conn)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var n int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('users','profiles','drafts','client_session')`).Scan(&n))
	assert.Equal(t, 4, n)
}
