package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicportal/internal/db"
)

// newPGStore connects to the database named by PORTAL_TEST_DB_DSN and skips
// the test when it is unset.
func newPGStore(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("PORTAL_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("PORTAL_TEST_DB_DSN not set")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = db.Migrate(ctx, conn, filepath.Join("..", "..", "sql"))
	require.NoError(t, err)
	return NewPGStore(conn)
}

func testSessionID(t *testing.T, store *PGStore) string {
	t.Helper()
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = store.Clear(context.Background(), id) })
	return id
}

func TestPGStoreSaveMergesFlags(t *testing.T) {
	store := newPGStore(t)
	ctx := context.Background()
	id := testSessionID(t, store)

	require.NoError(t, store.Save(ctx, id, Flags{FlagUserType: "citizen", FlagUserEmail: "a@b.in"}))
	require.NoError(t, store.Save(ctx, id, Flags{FlagUserEmail: "c@d.in", FlagIsAuthenticated: "true"}))

	flags, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, Flags{
		FlagUserType:        "citizen",
		FlagUserEmail:       "c@d.in",
		FlagIsAuthenticated: "true",
	}, flags)

	require.NoError(t, store.Save(ctx, id, Flags{}))
	require.NoError(t, store.Clear(ctx, id))
	flags, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestPGStorePurgeDropsIdleSessions(t *testing.T) {
	store := newPGStore(t)
	ctx := context.Background()
	idle := testSessionID(t, store)
	active := testSessionID(t, store)

	require.NoError(t, store.Save(ctx, idle, Flags{FlagUserType: "officer", FlagUserName: "Ravi"}))
	require.NoError(t, store.Save(ctx, active, Flags{FlagUserType: "admin"}))

	_, err := store.db.ExecContext(ctx,
		`UPDATE session_flags SET updated_at = $2 WHERE session_id = $1`,
		idle, time.Now().Add(-48*time.Hour).UTC())
	require.NoError(t, err)

	n, err := store.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(2))

	flags, err := store.Load(ctx, idle)
	require.NoError(t, err)
	assert.Empty(t, flags)

	flags, err = store.Load(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, "admin", flags[FlagUserType])
}
