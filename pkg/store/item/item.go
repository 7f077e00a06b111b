// Package item implements CRUD over pinboard items stored as flat
// files.
//
// An item is a metadata file plus zero or more media files sharing the
// same sharded base path. The store composes the identifier service,
// the metadata codec, the media ingestor, permission evaluation and
// derived-cache invalidation; it is the only writer of item metadata.
package item

import (
	"errors"
	"strings"
	"time"

	"github.com/octospacc/Pignio/pkg/identifier"
	"github.com/octospacc/Pignio/pkg/media"
	"github.com/octospacc/Pignio/pkg/store/cache"
	"github.com/octospacc/Pignio/pkg/store/collection"
)

var (
	// ErrPermissionDenied is returned when a mutation is attempted by
	// an actor who neither owns the item nor holds the admin role.
	// The store fails closed: no write happens and no exception-style
	// propagation occurs beyond this sentinel.
	ErrPermissionDenied = errors.New("item: permission denied")

	// ErrNoContent is returned when a stored item would end up with
	// no media, no text and no pre-existing content.
	ErrNoContent = errors.New("item: record has no content")
)

// Item types. An empty Type is a normal item.
const (
	TypeComment  = "comment"
	TypeCarousel = "carousel"
)

// Record is a fully loaded item.
type Record struct {
	ID string

	Title       string
	Description string
	Link        string
	Text        string
	AltText     string

	// Status is "public" or "silent".
	Status string

	// Type is TypeComment, TypeCarousel, or "" for a normal item.
	Type string

	// Creator is the username stamped at creation.
	Creator string

	// Langs lists the content languages.
	Langs []string

	// SysTags carries derived system tags (provenance, nsfw).
	SysTags []string

	// Media maps a kind to either a relative path under the items
	// root (stored media) or an absolute external URL.
	Media map[media.Kind]string

	// Images holds the ordered image paths of a carousel.
	Images []string

	// Datetime is decoded from the identifier, never stored.
	Datetime time.Time
}

// IsComment reports whether the record is a nested comment.
func (r *Record) IsComment() bool { return r.Type == TypeComment }

// IsCarousel reports whether the record holds an ordered image list.
func (r *Record) IsCarousel() bool { return r.Type == TypeCarousel }

// meaningful reports whether the record carries any content beyond its
// bare identifier and derived datetime. Empty metadata files with no
// valid media load as nothing.
func (r *Record) meaningful() bool {
	return r.Title != "" || r.Description != "" || r.Link != "" ||
		r.Text != "" || r.AltText != "" || r.Creator != "" ||
		r.Type != "" || len(r.Media) > 0 || len(r.Images) > 0
}

// Store provides item CRUD over a single items root directory.
type Store struct {
	root   string
	ids    *identifier.Service
	ingest *media.Ingestor
	cache  *cache.Cache
	pins   *collection.Index
	backup bool
}

// NewStore creates an item store.
//
// pins receives the automatic default-collection pin on item creation;
// cache is invalidated after every successful mutation.
func NewStore(root string, ids *identifier.Service, ingest *media.Ingestor, artifacts *cache.Cache, pins *collection.Index, backup bool) *Store {
	return &Store{
		root:   root,
		ids:    ids,
		ingest: ingest,
		cache:  artifacts,
		pins:   pins,
		backup: backup,
	}
}

// NewID generates a fresh top-level item identifier.
func (s *Store) NewID() string {
	return s.ids.Generate()
}

// CommentID composes the identifier for a new comment nested under
// parentID: the parent's sharded path plus a fresh snowflake segment.
func (s *Store) CommentID(parentID string) string {
	return s.ids.ToPath(s.ids.FromPath(parentID)) + "/" + s.ids.Generate()
}

// isAbsoluteURL reports whether a media reference points outside the
// local tree.
func isAbsoluteURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}

// globEscape escapes glob metacharacters in a literal path prefix so
// base names containing brackets cannot be misread as patterns.
func globEscape(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
