package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocalBoard/internal/state"
	"LocalBoard/internal/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExportAndRooms(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "board.db")

	store, err := storage.Open(db)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "room-1", []state.Element{
		{ID: "a", Type: state.TypeRectangle, Width: 40, Height: 20, Style: state.DefaultStyle},
	}))
	require.NoError(t, store.Close())

	out, err := run(t, "rooms", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "room-1")

	pdf := filepath.Join(dir, "room.pdf")
	out, err = run(t, "export", "room-1", pdf, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 elements")
	info, err := os.Stat(pdf)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRoomsDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "board.db")
	store, err := storage.Open(db)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "room-1", nil))
	require.NoError(t, store.Close())

	out, err := run(t, "rooms", "delete", "room-1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted room-1")

	out, err = run(t, "rooms", "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "room-1")

	_, err = run(t, "rooms", "delete", "room-1", "--db", db)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestExportMissingRoom(t *testing.T) {
	db := filepath.Join(t.TempDir(), "board.db")
	_, err := run(t, "export", "nope", filepath.Join(t.TempDir(), "x.pdf"), "--db", db)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestCommandsRegistered(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"relay", "draw", "export", "rooms"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("v"))
}
