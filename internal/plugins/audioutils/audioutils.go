// Package audioutils holds the concrete AudioUtility plugins injected into
// tasks: directory scanning, tag parsing, fingerprinting, and artwork
// retrieval. Grounded on the reference's
// src/plugins/audio_utils/{directory_scanner,media_parser,fingerprint_file,
// mb_client}.py.
//
// Per spec.md's Non-goals, concrete audio DSP (actual codec decoding,
// acoustic fingerprint computation) is out of scope; these utilities
// implement the plugin surface and a content-addressable stand-in (a
// checksum) where the reference would call out to chromaprint/ffmpeg.
// Artwork retrieval has no such Non-goal and is wired to a real HTTP
// client and on-disk cache.
package audioutils

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/httpclient"
	"github.com/jmylchreest/amm-core/internal/storage"
	"github.com/jmylchreest/amm-core/internal/version"
)

func boolPtr(b bool) *bool { return &b }

// DirectoryScanner walks the import directory for files matching the
// configured extensions, grounded on directory_scanner.py.
type DirectoryScanner struct {
	extensions map[string]bool
}

// NewDirectoryScanner builds a DirectoryScanner accepting the given
// extensions (without the leading dot, case-insensitive).
func NewDirectoryScanner(extensions []string) *DirectoryScanner {
	set := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &DirectoryScanner{extensions: set}
}

func (d *DirectoryScanner) Meta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginAudioUtility,
		Name:        "directory_scanner",
		Description: "walks a directory tree for supported audio files",
		Version:     "1.0.0",
		Author:      "amm-core",
	}
}

// Scan returns every regular file under root whose extension is configured.
// If no extensions are configured, every regular file matches.
func (d *DirectoryScanner) Scan(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if len(d.extensions) > 0 {
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if !d.extensions[ext] {
				return nil
			}
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// MediaParser extracts a title and track number from a file. Grounded on
// media_parser.py; stands in for real tag-reading with a filename-derived
// heuristic per the Non-goals note above.
type MediaParser struct{}

func NewMediaParser() *MediaParser { return &MediaParser{} }

func (p *MediaParser) Meta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginAudioUtility,
		Name:        "media_parser",
		Description: "extracts track metadata from a media file",
		Version:     "1.0.0",
		Author:      "amm-core",
	}
}

// ParsedTags is the result of parsing a single file.
type ParsedTags struct {
	Title string
}

// Parse derives tags for path. Real tag parsing is a Non-goal; title
// falls back to the file's base name with its extension stripped.
func (p *MediaParser) Parse(ctx context.Context, path string) (ParsedTags, error) {
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return ParsedTags{Title: title}, nil
}

// Fingerprinter computes a content identifier for a file. Grounded on
// fingerprint_file.py; uses SHA-1 of the file content as a stand-in for an
// acoustic fingerprint (actual chromaprint/AcoustID integration is a
// Non-goal per spec.md).
type Fingerprinter struct{}

func NewFingerprinter() *Fingerprinter { return &Fingerprinter{} }

func (f *Fingerprinter) Meta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginAudioUtility,
		Name:        "fingerprint_file",
		Description: "computes a content fingerprint for a media file",
		Version:     "1.0.0",
		Author:      "amm-core",
	}
}

// Fingerprint returns the hex-encoded SHA-1 of path's content.
func (f *Fingerprinter) Fingerprint(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha1.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TagWriter records metadata tags for a file. Grounded on tagger.py; real
// embedded-tag writing (ID3/Vorbis comment/MP4 atom encoding) is DSP-level
// format handling and out of scope per the Non-goals note above, so tags
// are written to a JSON sidecar next to the source file instead, the same
// kind of stand-in MediaParser uses for reading them.
type TagWriter struct{}

func NewTagWriter() *TagWriter { return &TagWriter{} }

func (w *TagWriter) Meta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginAudioUtility,
		Name:        "tagger",
		Description: "writes metadata tags alongside a media file",
		Version:     "1.0.0",
		Author:      "amm-core",
	}
}

// Tags is the set of fields WriteTags records.
type Tags struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// sidecarPath returns the JSON sidecar path for a media file path.
func sidecarPath(path string) string {
	return path + ".tags.json"
}

// WriteTags serializes tags to path's sidecar file.
func (w *TagWriter) WriteTags(ctx context.Context, path string, tags Tags) error {
	data, err := json.MarshalIndent(tags, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	if err := os.WriteFile(sidecarPath(path), data, 0o644); err != nil {
		return fmt.Errorf("writing tag sidecar: %w", err)
	}
	return nil
}

// coverArtArchiveBase is the Cover Art Archive endpoint for a MusicBrainz
// release/release-group/artist front image, grounded on mb_client.py's use
// of the same public API.
const coverArtArchiveBase = "https://coverartarchive.org"

// MusicBrainzClient fetches artwork from the Cover Art Archive by MBID,
// grounded on mb_client.py, backed by the reference's resilient
// internal/httpclient.Client (retries, circuit breaker, decompression)
// instead of a bare http.Client, and caching fetched images on disk via
// storage.ArtworkCache so repeated ArtGetter runs for the same MBID don't
// re-fetch.
type MusicBrainzClient struct {
	http  *httpclient.Client
	cache *storage.ArtworkCache
}

// NewMusicBrainzClient builds a MusicBrainzClient caching artwork under
// cacheDir. A nil *storage.ArtworkCache (cacheDir == "") disables caching.
func NewMusicBrainzClient(cacheDir string) (*MusicBrainzClient, error) {
	cfg := httpclient.DefaultConfig()
	cfg.UserAgent = version.UserAgent()
	client := &MusicBrainzClient{http: httpclient.New(cfg)}
	if cacheDir != "" {
		cache, err := storage.NewArtworkCache(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("creating artwork cache: %w", err)
		}
		client.cache = cache
	}
	return client, nil
}

func (c *MusicBrainzClient) Meta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginAudioUtility,
		Name:        "MusicBrainzClient",
		Description: "looks up and fetches artwork from MusicBrainz and the Cover Art Archive",
		Version:     "1.0.0",
		Author:      "amm-core",
	}
}

// artKindPath maps an ArtType to the Cover Art Archive resource it fetches.
// Artist and label art have no Cover Art Archive equivalent (it only
// indexes release artwork), so those kinds always return an error.
func artKindPath(mbid string, kind core.ArtType) (string, error) {
	switch kind {
	case core.ArtAlbum:
		return fmt.Sprintf("%s/release/%s/front", coverArtArchiveBase, mbid), nil
	default:
		return "", fmt.Errorf("musicbrainz: no cover art endpoint for art type %q", kind)
	}
}

// FetchArt fetches the artwork image for mbid, serving from the on-disk
// cache when present and storing newly fetched images back into it.
func (c *MusicBrainzClient) FetchArt(ctx context.Context, mbid string, kind core.ArtType) ([]byte, error) {
	endpoint, err := artKindPath(mbid, kind)
	if err != nil {
		return nil, err
	}
	return c.fetchFromURL(ctx, endpoint, mbid, kind)
}

// fetchFromURL does the actual cache-check/HTTP-fetch/cache-store work
// against an explicit endpoint, split out from FetchArt so tests can point
// it at a local server instead of the real Cover Art Archive.
func (c *MusicBrainzClient) fetchFromURL(ctx context.Context, endpoint, mbid string, kind core.ArtType) ([]byte, error) {
	if c.cache != nil {
		if meta, ok := c.cache.Lookup(mbid, string(kind)); ok {
			return c.cache.GetBytes(mbid, string(kind), meta.ContentType)
		}
	}

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching artwork: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading artwork response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if c.cache != nil {
		if _, err := c.cache.Store(mbid, string(kind), contentType, data); err != nil {
			return data, fmt.Errorf("caching artwork: %w", err)
		}
	}

	return data, nil
}
