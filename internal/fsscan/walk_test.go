package fsscan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/amm-core/internal/fsscan"
	"github.com/stretchr/testify/require"
)

func TestHasRegularFile(t *testing.T) {
	dir := t.TempDir()
	ok, err := fsscan.HasRegularFile(dir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.flac"), []byte("x"), 0o644))
	ok, err = fsscan.HasRegularFile(dir)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPruneEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	keep := filepath.Join(dir, "keep")
	require.NoError(t, os.MkdirAll(keep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(keep, "track.flac"), []byte("x"), 0o644))

	require.NoError(t, fsscan.PruneEmptyDirs(dir))

	_, err := os.Stat(filepath.Join(dir, "a"))
	require.True(t, os.IsNotExist(err), "empty nested tree must be pruned")
	_, err = os.Stat(keep)
	require.NoError(t, err, "directory containing a file must survive")
}
