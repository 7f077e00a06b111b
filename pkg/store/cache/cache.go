// Package cache implements the derived-artifact store: thumbnails,
// rendered cards and proxied remote media, content-addressed by item
// ID and recomputed lazily after invalidation.
package cache

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/octospacc/Pignio/internal/logger"
)

// ArtifactKind names a class of derived artifact.
type ArtifactKind string

const (
	// Thumbnail is a reduced preview of the item's media.
	Thumbnail ArtifactKind = "thumb"

	// Render is a generated presentation of the item (e.g. a text
	// card image).
	Render ArtifactKind = "render"

	// Proxy is a locally cached copy of remote media referenced by an
	// absolute URL.
	Proxy ArtifactKind = "proxy"
)

// BuildFunc computes an artifact, returning its bytes and MIME type.
// Builders are external logic (thumbnailers, transcoders, remote
// fetches); the cache treats them as opaque.
type BuildFunc func(ctx context.Context) (data []byte, mime string, err error)

// Cache is a filesystem-backed artifact store under a single root
// directory.
//
// Entries live at <root>/<itemID>.<ext>; proxy entries additionally
// keep a <itemID>.inf sidecar recording the remote MIME type, since
// the extension alone does not disambiguate all subtypes. When
// disabled, builders run on every request and nothing is persisted.
type Cache struct {
	root    string
	enabled bool
}

// New creates a Cache rooted at root. The directory is created on
// first write.
func New(root string, enabled bool) *Cache {
	return &Cache{root: root, enabled: enabled}
}

// GetOrBuild returns the cached artifact for (id, kind), invoking
// build on a miss and persisting the result when caching is enabled.
func (c *Cache) GetOrBuild(ctx context.Context, id string, kind ArtifactKind, build BuildFunc) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if c.enabled {
		if data, mimeType, ok := c.lookup(id, kind); ok {
			return data, mimeType, nil
		}
	}

	data, mimeType, err := build(ctx)
	if err != nil {
		return nil, "", err
	}

	if c.enabled {
		if err := c.persist(id, kind, data, mimeType); err != nil {
			// Serving the freshly built artifact matters more than
			// caching it.
			logger.Warn("failed to persist %s artifact for %s: %v", kind, id, err)
		}
	}

	return data, mimeType, nil
}

// Invalidate deletes every cached artifact whose name matches the
// item's base name, regardless of kind. Called unconditionally after
// every successful item store or delete. Returns the number of files
// removed.
func (c *Cache) Invalidate(id string) int {
	matches, err := filepath.Glob(filepath.Join(c.root, id) + ".*")
	if err != nil {
		return 0
	}

	deleted := 0
	for _, path := range matches {
		if os.Remove(path) == nil {
			deleted++
		}
	}
	return deleted
}

// lookup serves an existing artifact file, if any.
func (c *Cache) lookup(id string, kind ArtifactKind) ([]byte, string, bool) {
	if kind == Proxy {
		raw, err := os.ReadFile(c.sidecarPath(id))
		if err != nil {
			return nil, "", false
		}
		mimeType := strings.TrimSpace(string(raw))
		_, ext, found := strings.Cut(mimeType, "/")
		if !found {
			return nil, "", false
		}
		data, err := os.ReadFile(filepath.Join(c.root, id) + "." + ext)
		if err != nil {
			return nil, "", false
		}
		return data, mimeType, true
	}

	matches, err := filepath.Glob(c.artifactBase(id, kind) + ".*")
	if err != nil || len(matches) == 0 {
		return nil, "", false
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, "", false
	}

	mimeType := mime.TypeByExtension(filepath.Ext(matches[0]))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return data, mimeType, true
}

func (c *Cache) persist(id string, kind ArtifactKind, data []byte, mimeType string) error {
	_, ext, found := strings.Cut(mimeType, "/")
	if !found || ext == "" {
		return fmt.Errorf("artifact for %s has no usable MIME type %q", id, mimeType)
	}

	var path string
	if kind == Proxy {
		path = filepath.Join(c.root, id) + "." + ext
	} else {
		path = c.artifactBase(id, kind) + "." + ext
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	if kind == Proxy {
		return os.WriteFile(c.sidecarPath(id), []byte(mimeType), 0644)
	}
	return nil
}

// artifactBase returns the path prefix for non-proxy artifacts:
// <root>/<id>.<kind>
func (c *Cache) artifactBase(id string, kind ArtifactKind) string {
	return filepath.Join(c.root, id) + "." + string(kind)
}

func (c *Cache) sidecarPath(id string) string {
	return filepath.Join(c.root, id) + ".inf"
}
