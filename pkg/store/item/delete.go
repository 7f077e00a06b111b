package item

import (
	"context"
	"os"
	"path/filepath"

	"github.com/octospacc/Pignio/pkg/media"
)

// Delete removes every sibling file of the item's base path plus all
// of its derived-cache artifacts, returning the total number of files
// removed. With onlyMedia set, the metadata file survives and only
// media siblings are removed.
//
// Nested comments are not deleted recursively; callers needing that
// must walk the subtree explicitly.
func (s *Store) Delete(ctx context.Context, id string, onlyMedia bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id = s.ids.FromPath(id)
	base := filepath.Join(s.root, filepath.FromSlash(s.ids.ToPath(id)))

	files, err := filepath.Glob(globEscape(base) + ".*")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, file := range files {
		if onlyMedia && media.IsMetaFile(file) {
			continue
		}
		if err := os.Remove(file); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted + s.cache.Invalidate(id), nil
}
