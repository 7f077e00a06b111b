package item

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/octospacc/Pignio/pkg/media"
)

// WalkOptions scopes a full-record walk.
type WalkOptions struct {
	// Path restricts the walk to a subtree of the items root.
	Path string

	// Creator keeps only items stamped with this creator.
	Creator string

	// Comments selects nested comments instead of top-level items.
	Comments bool
}

// WalkIDs cheaply lists the identifier of every recognized item base
// name under the given subtree ("" for the whole root), without
// loading records or distinguishing comments. This is the existence
// scan behind counting.
func (s *Store) WalkIDs(ctx context.Context, subtree string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byDir, order, err := s.scan(subtree)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, dir := range order {
		ids = append(ids, byDir[dir]...)
	}
	return ids, nil
}

// Walk loads every item matching the options. An item counts as a
// nested comment when the directory holding it is itself a recognized
// item of its parent directory; the Comments flag selects which class
// is returned. Unloadable (empty) base names are skipped.
func (s *Store) Walk(ctx context.Context, opts WalkOptions) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byDir, order, err := s.scan(opts.Path)
	if err != nil {
		return nil, err
	}

	members := make(map[string]map[string]bool, len(byDir))
	for dir, ids := range byDir {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		members[dir] = set
	}

	var records []*Record
	for _, dir := range order {
		isComment := s.dirIsItem(dir, members)
		if isComment != opts.Comments {
			continue
		}
		for _, id := range byDir[dir] {
			rec, err := s.Load(ctx, id)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			if opts.Creator != "" && rec.Creator != opts.Creator {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// Count returns the number of recognized item base names in the tree,
// comments included.
func (s *Store) Count(ctx context.Context) (int, error) {
	ids, err := s.WalkIDs(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IsItemsFolder reports whether the subtree at relPath holds at least
// one non-comment item, which is what makes a subdirectory a browsable
// folder.
func (s *Store) IsItemsFolder(ctx context.Context, relPath string) (bool, error) {
	if relPath == "" {
		return false, nil
	}
	if info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(relPath))); err != nil || !info.IsDir() {
		return false, nil
	}

	records, err := s.Walk(ctx, WalkOptions{Path: relPath})
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// ListFolders returns the sorted names of the subdirectories of
// relPath that qualify as item folders.
func (s *Store) ListFolders(ctx context.Context, relPath string) ([]string, error) {
	base := filepath.Join(s.root, filepath.FromSlash(relPath))
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ok, err := s.IsItemsFolder(ctx, path.Join(relPath, entry.Name()))
		if err != nil {
			return nil, err
		}
		if ok {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// scan walks the tree once, returning the recognized item IDs grouped
// by slash-relative directory (root = ""), plus the directory visit
// order. IDs within a directory are deduplicated: metadata and media
// siblings share one base name.
func (s *Store) scan(subtree string) (map[string][]string, []string, error) {
	walkRoot := s.root
	if subtree != "" {
		walkRoot = filepath.Join(s.root, filepath.FromSlash(subtree))
	}

	byDir := make(map[string][]string)
	var order []string

	err := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}

		if d.IsDir() {
			rel := s.relPath(p)
			if rel == "." {
				rel = ""
			}
			if _, seen := byDir[rel]; !seen {
				byDir[rel] = nil
				order = append(order, rel)
			}
			return nil
		}

		if !media.IsSupportedFile(d.Name()) {
			return nil
		}

		dir := s.relPath(filepath.Dir(p))
		if dir == "." {
			dir = ""
		}

		base := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		id := s.ids.FromPath(path.Join(dir, base))
		for _, seen := range byDir[dir] {
			if seen == id {
				return nil
			}
		}
		byDir[dir] = append(byDir[dir], id)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return byDir, order, nil
}

// dirIsItem reports whether dir's own base name is a recognized item
// inside its parent directory, which marks dir's contents as comments.
func (s *Store) dirIsItem(dir string, members map[string]map[string]bool) bool {
	if dir == "" {
		return false
	}
	parent := path.Dir(dir)
	if parent == "." {
		parent = ""
	}
	set, ok := members[parent]
	if !ok {
		return false
	}
	return set[s.ids.FromPath(dir)]
}

// SortRecords orders records by the given field, newest-first for
// datetime (the default) and ascending otherwise unless inverse is
// set.
func SortRecords(records []*Record, key string, inverse bool) {
	sort.SliceStable(records, func(i, j int) bool {
		switch key {
		case "title":
			return records[i].Title < records[j].Title
		case "creator":
			return records[i].Creator < records[j].Creator
		default:
			return records[i].Datetime.Before(records[j].Datetime)
		}
	})
	if inverse || key == "" || key == "datetime" {
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	}
}
