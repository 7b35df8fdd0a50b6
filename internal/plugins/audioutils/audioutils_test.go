package audioutils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryScannerFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.flac"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0644))

	scanner := NewDirectoryScanner([]string{"flac"})
	found, err := scanner.Scan(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, strings.HasSuffix(found[0], "a.flac"))
}

func TestDirectoryScannerMissingRoot(t *testing.T) {
	scanner := NewDirectoryScanner(nil)
	found, err := scanner.Scan(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMediaParserDerivesTitleFromFilename(t *testing.T) {
	parser := NewMediaParser()
	tags, err := parser.Parse(context.Background(), "/music/inbox/Some Song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "Some Song", tags.Title)
}

func TestFingerprinterIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.flac")
	require.NoError(t, os.WriteFile(path, []byte("identical-content"), 0644))

	fp := NewFingerprinter()
	first, err := fp.Fingerprint(context.Background(), path)
	require.NoError(t, err)
	second, err := fp.Fingerprint(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestMusicBrainzClientFetchArtCachesResult(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("cover-bytes"))
	}))
	defer server.Close()

	client, err := NewMusicBrainzClient(t.TempDir())
	require.NoError(t, err)

	data, err := client.fetchFromURL(context.Background(), server.URL, "mbid-123", core.ArtAlbum)
	require.NoError(t, err)
	assert.Equal(t, []byte("cover-bytes"), data)
	assert.Equal(t, 1, calls)

	// Second call should be served from cache, not hit the server again.
	data2, err := client.fetchFromURL(context.Background(), server.URL, "mbid-123", core.ArtAlbum)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
	assert.Equal(t, 1, calls)
}

func TestMusicBrainzClientUnsupportedArtType(t *testing.T) {
	client, err := NewMusicBrainzClient("")
	require.NoError(t, err)

	_, err = client.FetchArt(context.Background(), "mbid-1", core.ArtArtist)
	assert.Error(t, err)
}
