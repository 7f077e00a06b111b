package item

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/octospacc/Pignio/pkg/media"
	"github.com/octospacc/Pignio/pkg/metadata"
	"github.com/octospacc/Pignio/pkg/store/cache"
)

// Load resolves an item by identifier.
//
// The sharded base path is globbed for sibling files: the metadata
// file contributes the stored fields, recognized media files
// contribute media references, and carousel items additionally pick up
// numbered image files from a same-named subdirectory, sorted by name.
// Returns (nil, nil) when nothing exists at the base path or the
// merged record has no content beyond its identifier; a malformed
// metadata file is a read error.
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id = s.ids.FromPath(id)
	rel := s.ids.ToPath(id)
	base := filepath.Join(s.root, filepath.FromSlash(rel))

	files, err := filepath.Glob(globEscape(base) + ".*")
	if err != nil || len(files) == 0 {
		return nil, nil
	}

	rec := &Record{ID: id, Media: make(map[media.Kind]string)}
	if ts, ok := s.ids.Timestamp(id); ok {
		rec.Datetime = ts
	}

	for _, file := range files {
		switch {
		case media.IsMetaFile(file):
			fields, err := metadata.ReadFile(file)
			if err != nil {
				return nil, err
			}
			mergeFields(rec, fields)

		default:
			if kind, ok := media.FileKind(file); ok {
				rec.Media[kind] = s.relPath(file)
			}
		}
	}

	// A comment's timestamp comes from its own identifier segment,
	// not the parent's.
	if rec.IsComment() {
		segments := strings.Split(id, "/")
		if ts, ok := s.ids.Timestamp(segments[len(segments)-1]); ok {
			rec.Datetime = ts
		}
	}

	if rec.IsCarousel() {
		inner, _ := filepath.Glob(globEscape(base) + "/*.*")
		for _, file := range inner {
			if kind, ok := media.FileKind(file); ok && kind == media.KindImage {
				rec.Images = append(rec.Images, s.relPath(file))
			}
		}
		sort.Strings(rec.Images)
	}

	if !rec.meaningful() {
		return nil, nil
	}
	return rec, nil
}

// mergeFields maps decoded metadata onto the typed record. Unknown
// keys are dropped; media-kind keys carry absolute URLs here since
// local paths are derived from sibling files, not stored.
func mergeFields(rec *Record, fields metadata.Fields) {
	rec.Title = fields.Scalar("title")
	rec.Description = fields.Scalar("description")
	rec.Link = fields.Scalar("link")
	rec.Text = fields.Scalar("text")
	rec.AltText = fields.Scalar("alttext")
	rec.Status = fields.Scalar("status")
	rec.Type = fields.Scalar("type")
	rec.Creator = fields.Scalar("creator")
	rec.Langs = fields.List("langs")
	rec.SysTags = fields.List("systags")
	rec.Images = fields.List("images")

	for _, kind := range media.Kinds {
		ref := fields.Scalar(string(kind))
		if ref == "" {
			continue
		}
		// A sibling media file on disk always wins over a stored URL.
		if _, exists := rec.Media[kind]; !exists {
			rec.Media[kind] = ref
		}
	}
}

// relPath converts an absolute file path under the items root into the
// slash-separated reference stored on records.
func (s *Store) relPath(file string) string {
	rel, err := filepath.Rel(s.root, file)
	if err != nil {
		return file
	}
	return filepath.ToSlash(rel)
}

// ResolveMedia resolves the media reference of a record for serving.
//
// A relative reference resolves to the local file path. An absolute
// external URL is served through the derived-cache proxy: fetched once
// with the bounded-timeout client and persisted (with its MIME
// sidecar) when proxy caching is enabled, instead of re-fetching on
// every read.
func (s *Store) ResolveMedia(ctx context.Context, rec *Record, kind media.Kind) (localPath string, data []byte, mimeType string, err error) {
	ref, ok := rec.Media[kind]
	if !ok {
		return "", nil, "", fmt.Errorf("item %s has no %s media", rec.ID, kind)
	}

	if !isAbsoluteURL(ref) {
		return filepath.Join(s.root, filepath.FromSlash(ref)), nil, "", nil
	}

	data, mimeType, err = s.cache.GetOrBuild(ctx, rec.ID, cache.Proxy, func(ctx context.Context) ([]byte, string, error) {
		return s.ingest.Fetch(ctx, ref)
	})
	if err != nil {
		return "", nil, "", err
	}
	return "", data, mimeType, nil
}
