// Package storage provides sandboxed file operations for amm-core: a
// path-traversal-safe base (Sandbox, trimmed from the reference's) and, on
// top of it, an on-disk cache for artwork retrieved by MusicBrainzClient.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// ArtworkCache stores artwork images fetched for an MBID/ArtType pair,
// adapted from the reference's LogoCache (internal/storage/logo_cache.go):
// same sharded-directory, atomic-write, sidecar-metadata approach, keyed by
// MusicBrainz ID and art kind instead of a logo URL hash.
//
// Directory structure:
//   - art/{shard}/{mbid}_{kind}{ext}      - the image
//   - art/{shard}/{mbid}_{kind}.json      - its ArtworkMetadata sidecar
type ArtworkCache struct {
	sandbox *Sandbox
}

// NewArtworkCache creates an ArtworkCache rooted at baseDir.
func NewArtworkCache(baseDir string) (*ArtworkCache, error) {
	sandbox, err := NewSandbox(baseDir)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	if err := sandbox.MkdirAll("art"); err != nil {
		return nil, fmt.Errorf("creating art directory: %w", err)
	}
	return &ArtworkCache{sandbox: sandbox}, nil
}

// ArtworkMetadata is the sidecar JSON stored next to a cached artwork image.
type ArtworkMetadata struct {
	MBID        string    `json:"mbid"`
	Kind        string    `json:"kind"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (c *ArtworkCache) key(mbid, kind string) string {
	id := mbid + "_" + kind
	shard := id
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join("art", shard, id)
}

func (c *ArtworkCache) imagePath(mbid, kind, contentType string) string {
	return c.key(mbid, kind) + extensionFromContentType(contentType)
}

func (c *ArtworkCache) metaPath(mbid, kind string) string {
	return c.key(mbid, kind) + ".json"
}

// Store writes image data for (mbid, kind) and its metadata sidecar,
// returning the relative path the image was written to.
func (c *ArtworkCache) Store(mbid, kind, contentType string, data []byte) (string, error) {
	imgPath := c.imagePath(mbid, kind, contentType)
	if err := c.sandbox.AtomicWrite(imgPath, data); err != nil {
		return "", fmt.Errorf("writing artwork: %w", err)
	}

	meta := ArtworkMetadata{
		MBID:        mbid,
		Kind:        kind,
		ContentType: contentType,
		FileSize:    int64(len(data)),
		FetchedAt:   time.Now(),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return imgPath, fmt.Errorf("marshaling artwork metadata: %w", err)
	}
	if err := c.sandbox.AtomicWrite(c.metaPath(mbid, kind), metaJSON); err != nil {
		return imgPath, fmt.Errorf("writing artwork metadata: %w", err)
	}
	return imgPath, nil
}

// StoreReader is Store for a streaming source, avoiding a full buffer
// allocation for large art files.
func (c *ArtworkCache) StoreReader(mbid, kind, contentType string, r io.Reader) (string, int64, error) {
	imgPath := c.imagePath(mbid, kind, contentType)
	if err := c.sandbox.AtomicWriteReader(imgPath, r); err != nil {
		return "", 0, fmt.Errorf("writing artwork: %w", err)
	}
	size, err := c.sandbox.Size(imgPath)
	if err != nil {
		return imgPath, 0, fmt.Errorf("getting artwork size: %w", err)
	}

	meta := ArtworkMetadata{MBID: mbid, Kind: kind, ContentType: contentType, FileSize: size, FetchedAt: time.Now()}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		_ = c.sandbox.AtomicWrite(c.metaPath(mbid, kind), metaJSON)
	}
	return imgPath, size, nil
}

// Lookup returns the cached metadata for (mbid, kind), or ok=false if not cached.
func (c *ArtworkCache) Lookup(mbid, kind string) (*ArtworkMetadata, bool) {
	data, err := c.sandbox.ReadFile(c.metaPath(mbid, kind))
	if err != nil {
		return nil, false
	}
	var meta ArtworkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}
	return &meta, true
}

// GetBytes reads the cached image bytes for (mbid, kind) at the given
// content type (which determines the on-disk extension).
func (c *ArtworkCache) GetBytes(mbid, kind, contentType string) ([]byte, error) {
	return c.sandbox.ReadFile(c.imagePath(mbid, kind, contentType))
}

// Exists reports whether artwork is already cached for (mbid, kind).
func (c *ArtworkCache) Exists(mbid, kind string) bool {
	_, ok := c.Lookup(mbid, kind)
	return ok
}

// BaseDir returns the absolute path to the cache base directory.
func (c *ArtworkCache) BaseDir() string {
	return c.sandbox.BaseDir()
}

func extensionFromContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
