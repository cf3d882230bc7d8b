package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// blockWrites makes every insert and delete on turns fail until unblock is called.
func blockWrites(t *testing.T, o *sqliteOpener) (unblock func()) {
	t.Helper()
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS write_block (x INTEGER)`,
		`CREATE TRIGGER IF NOT EXISTS block_insert BEFORE INSERT ON turns
			WHEN EXISTS (SELECT 1 FROM write_block) BEGIN SELECT RAISE(ABORT, 'writes blocked'); END`,
		`CREATE TRIGGER IF NOT EXISTS block_delete BEFORE DELETE ON turns
			WHEN EXISTS (SELECT 1 FROM write_block) BEGIN SELECT RAISE(ABORT, 'writes blocked'); END`,
		`INSERT INTO write_block VALUES (1)`,
	} {
		_, err := o.db.Exec(stmt)
		require.NoError(t, err)
	}
	return func() {
		_, err := o.db.Exec(`DELETE FROM write_block`)
		require.NoError(t, err)
	}
}

func reopenTurns(t *testing.T, path string) []Turn {
	t.Helper()
	o, err := openSQLite(path)
	require.NoError(t, err)
	defer o.Close()
	s, err := o.Open(context.Background(), DefaultSession)
	require.NoError(t, err)
	return s.Turns()
}

func TestSQLiteStoreRecoversFailedAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	o, err := openSQLite(path)
	require.NoError(t, err)
	s, err := o.Open(ctx, DefaultSession)
	require.NoError(t, err)

	a := Turn{Role: RoleUser, Content: "a"}
	b := Turn{Role: RoleAssistant, Content: "b"}
	c := Turn{Role: RoleUser, Content: "c"}

	require.NoError(t, s.Append(ctx, a))
	unblock := blockWrites(t, o)
	require.ErrorContains(t, s.Append(ctx, b), "persist turn")
	require.Equal(t, []Turn{a, b}, s.Turns())

	unblock()
	require.NoError(t, s.Append(ctx, c))
	require.NoError(t, o.Close())

	require.Equal(t, []Turn{a, b, c}, reopenTurns(t, path))
}

func TestSQLiteStoreRecoversFailedClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	o, err := openSQLite(path)
	require.NoError(t, err)
	s, err := o.Open(ctx, DefaultSession)
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, Turn{Role: RoleUser, Content: "old 1"}))
	require.NoError(t, s.Append(ctx, Turn{Role: RoleAssistant, Content: "old 2"}))

	unblock := blockWrites(t, o)
	require.ErrorContains(t, s.Clear(ctx), "clear turns")
	require.Empty(t, s.Turns())

	unblock()
	fresh := Turn{Role: RoleUser, Content: "fresh"}
	require.NoError(t, s.Append(ctx, fresh))
	require.NoError(t, o.Close())

	require.Equal(t, []Turn{fresh}, reopenTurns(t, path))
}
