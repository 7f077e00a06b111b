// Package collection maintains per-user named lists of pinned item
// IDs.
//
// The default collection (id "") is materialized inside the user's own
// record file; named collections live as metadata files under the
// user's subdirectory. Lists are stored in insertion order and exposed
// newest-pinned-first.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/octospacc/Pignio/pkg/metadata"
	"github.com/octospacc/Pignio/pkg/store/user"
)

// ErrNotPinned is returned when unpinning an item that is not a member
// of the collection. Callers should check membership first via
// Contains, or tolerate the failure.
var ErrNotPinned = errors.New("collection: item not pinned")

// Collection is a loaded pin list. Items are newest-pinned-first.
type Collection struct {
	ID          string
	Title       string
	Description string
	Items       []string
}

// Index reads and mutates collection files.
//
// Toggle is a read-modify-write guarded by a per-path mutex, which
// removes the in-process half of the lost-update race. There is no
// cross-process locking; concurrent writers in separate processes can
// still lose updates, which is accepted for the single-admin
// deployment model this engine targets.
type Index struct {
	users  *user.Store
	backup bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIndex creates an Index over the given user record store.
func NewIndex(users *user.Store, backup bool) *Index {
	return &Index{
		users:  users,
		backup: backup,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Path returns the metadata file backing (username, collectionID).
// The default collection ("") is the user record itself.
func (x *Index) Path(username, collectionID string) string {
	if collectionID == "" {
		return x.users.Path(username)
	}
	return filepath.Join(x.users.Dir(username), collectionID+metadata.MetaExt)
}

// Toggle pins (pinned=true) or unpins (pinned=false) an item in a
// collection, creating the collection file on first pin. Unpinning a
// non-member returns ErrNotPinned. The rewrite preserves every other
// field of the backing file, so toggling the default collection keeps
// the user's credentials intact.
func (x *Index) Toggle(ctx context.Context, username, collectionID, itemID string, pinned bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := x.Path(username, collectionID)
	lock := x.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	fields, err := metadata.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		fields = metadata.Fields{}
	}

	items := fields.List("items")
	if pinned {
		items = append(items, itemID)
	} else {
		i := indexOf(items, itemID)
		if i < 0 {
			return ErrNotPinned
		}
		items = append(items[:i], items[i+1:]...)
	}

	fields["items"] = items
	return metadata.WriteFile(path, fields, x.backup)
}

// Contains reports whether an item is pinned in a collection. A
// missing collection file counts as not pinned.
func (x *Index) Contains(ctx context.Context, username, collectionID, itemID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fields, err := metadata.ReadFile(x.Path(username, collectionID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return indexOf(fields.List("items"), itemID) >= 0, nil
}

// Load reads a single collection, newest-pinned-first. A missing file
// loads as an empty collection so the default list always exists.
func (x *Index) Load(ctx context.Context, username, collectionID string) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields, err := metadata.ReadFile(x.Path(username, collectionID))
	if err != nil {
		if os.IsNotExist(err) {
			return &Collection{ID: collectionID}, nil
		}
		return nil, err
	}
	return fromFields(collectionID, fields), nil
}

// WalkAll returns every collection of a user, keyed by collection ID.
// The default collection ("") is always present, backed by the user's
// own record; named collections are discovered by listing metadata
// files under the user's subdirectory.
func (x *Index) WalkAll(ctx context.Context, username string) (map[string]*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make(map[string]*Collection)

	def, err := x.Load(ctx, username, "")
	if err != nil {
		return nil, err
	}
	results[""] = def

	dir := x.users.Dir(username)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), metadata.MetaExt) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), metadata.MetaExt)

		fields, err := metadata.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read collection %s/%s: %w", username, id, err)
		}
		results[id] = fromFields(id, fields)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Delete removes a named collection file. Empty collections are never
// removed automatically; this is the explicit tooling path. The
// default collection cannot be deleted.
func (x *Index) Delete(username, collectionID string) error {
	if collectionID == "" {
		return errors.New("collection: cannot delete the default collection")
	}
	return os.Remove(x.Path(username, collectionID))
}

// fromFields builds a Collection, reversing the stored insertion order
// so the newest pin comes first.
func fromFields(id string, fields metadata.Fields) *Collection {
	stored := fields.List("items")
	items := make([]string, len(stored))
	for i, item := range stored {
		items[len(stored)-1-i] = item
	}

	return &Collection{
		ID:          id,
		Title:       fields.Scalar("title"),
		Description: fields.Scalar("description"),
		Items:       items,
	}
}

// pathLock returns the mutex guarding one collection file.
func (x *Index) pathLock(path string) *sync.Mutex {
	x.mu.Lock()
	defer x.mu.Unlock()

	lock, ok := x.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		x.locks[path] = lock
	}
	return lock
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
