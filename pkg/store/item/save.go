package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/octospacc/Pignio/internal/logger"
	"github.com/octospacc/Pignio/pkg/access"
	"github.com/octospacc/Pignio/pkg/media"
	"github.com/octospacc/Pignio/pkg/metadata"
)

// Upload is an uploaded media stream.
type Upload struct {
	Reader      io.Reader
	ContentType string
	Filename    string
}

// SaveRequest carries the incoming fields of a store operation.
//
// Fields is the raw scalar input; only the allow-listed keys (link,
// title, description, image, video, audio, text, alttext, status) are
// ever persisted verbatim. Provenance and NSFW are consumed into
// derived system tags instead of being stored as-is.
type SaveRequest struct {
	Actor access.Actor

	Fields map[string]string

	// Langs lists the content languages, also passed to OCR.
	Langs []string

	// Images holds carousel image URLs; two or more force the item
	// type to carousel on creation.
	Images []string

	// Collections names the collections to pin a newly created item
	// into. Empty means the user's default collection; the sentinel
	// "-" suppresses pinning entirely.
	Collections []string

	// Upload, when set, takes precedence over any media URL field.
	Upload *Upload

	// Archive stores remote media locally instead of keeping the
	// bare URL reference.
	Archive bool

	// OCR requests alt-text synthesis when the item has an image and
	// no explicit alt-text was supplied.
	OCR bool

	// Comment marks the item as a nested comment.
	Comment bool

	Provenance string
	NSFW       bool
}

// allowedFields is the fixed allow-list of incoming scalar keys.
var allowedFields = map[string]bool{
	"link":        true,
	"title":       true,
	"description": true,
	"image":       true,
	"video":       true,
	"audio":       true,
	"text":        true,
	"alttext":     true,
	"status":      true,
}

// Save creates or edits the item at id, returning the effective
// identifier (generated when id is empty).
//
// Policy on edits is fail-closed: an actor without edit permission
// gets ErrPermissionDenied and nothing is written. A store that would
// produce an item with no existing content, no media and no text
// fails with ErrNoContent. Transient remote fetch failures during
// archiving propagate as errors; unsupported media is skipped rather
// than aborting. After a successful write every derived-cache artifact
// of the item is invalidated.
func (s *Store) Save(ctx context.Context, id string, req SaveRequest) (string, error) {
	// ========================================================================
	// Step 1: Resolve the identifier and the existing record
	// ========================================================================

	if id == "" {
		id = s.ids.Generate()
	}
	id = s.ids.FromPath(id)

	existing, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}

	if existing != nil && !access.CanEdit(req.Actor, existing.Creator) {
		return "", ErrPermissionDenied
	}

	rel := s.ids.ToPath(id)
	base := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return "", fmt.Errorf("failed to create item directory: %w", err)
	}

	// ========================================================================
	// Step 2: Collect the allow-listed fields
	// ========================================================================

	fields := metadata.Fields{}
	for key, value := range req.Fields {
		if allowedFields[key] {
			fields.SetScalar(key, value)
		}
	}
	if req.Comment {
		fields.SetScalar("type", TypeComment)
	}
	fields.SetList("langs", req.Langs)

	// ========================================================================
	// Step 3: Resolve media, preferring the upload over URL fields
	// ========================================================================

	var (
		hasMedia   bool
		storedKind media.Kind
		storedPath string
	)

	if req.Upload != nil {
		kind, path, err := s.ingest.StoreFromUpload(ctx, req.Upload.Reader, req.Upload.ContentType, req.Upload.Filename, base)
		switch {
		case err == nil:
			hasMedia, storedKind, storedPath = true, kind, path
		case errors.Is(err, media.ErrUnsupported):
			// Unsupported uploads degrade to "no media"; the store
			// proceeds on the remaining content.
		default:
			return "", err
		}
	}

	if !hasMedia {
		if kind, ref := firstMediaField(fields); ref != "" {
			if req.Archive {
				archivedKind, path, err := s.ingest.StoreFromURL(ctx, ref, base)
				switch {
				case err == nil:
					hasMedia, storedKind, storedPath = true, archivedKind, path
					// The local copy is now authoritative.
					delete(fields, string(kind))
				case errors.Is(err, media.ErrNotHandled), errors.Is(err, media.ErrUnsupported):
					// Keep the reference verbatim, without counting
					// it as media content.
				default:
					return "", err
				}
			} else {
				// A bare URL reference counts as media content but
				// stores nothing locally.
				hasMedia = true
			}
		}
	}

	if !hasMedia && len(req.Images) >= 2 {
		if req.Archive {
			for i, ref := range req.Images {
				_, _, err := s.ingest.StoreFromURL(ctx, ref, filepath.Join(base, strconv.Itoa(i+1)))
				if err != nil && !errors.Is(err, media.ErrNotHandled) {
					return "", fmt.Errorf("failed to archive carousel image %d: %w", i+1, err)
				}
			}
		} else {
			fields.SetList("images", req.Images)
		}
		hasMedia = true
		if existing == nil {
			fields.SetScalar("type", TypeCarousel)
		}
	}

	// ========================================================================
	// Step 4: Reject contentless records
	// ========================================================================

	if existing == nil && !hasMedia && fields.Scalar("text") == "" {
		return "", ErrNoContent
	}

	// ========================================================================
	// Step 5: Synthesize alt-text via OCR when requested
	// ========================================================================

	if req.OCR && fields.Scalar("alttext") == "" {
		imagePath := ""
		if storedKind == media.KindImage {
			imagePath = storedPath
		} else if existing != nil {
			if ref, ok := existing.Media[media.KindImage]; ok && !isAbsoluteURL(ref) {
				imagePath = filepath.Join(s.root, filepath.FromSlash(ref))
			}
		}
		if imagePath != "" && len(req.Langs) > 0 {
			// OCR failures leave alt-text empty, never fail the store.
			fields.SetScalar("alttext", s.ingest.OCRText(ctx, imagePath, req.Langs))
		}
	}

	// ========================================================================
	// Step 6: Stamp creation fields, or preserve immutable ones
	// ========================================================================

	if existing != nil {
		fields.SetScalar("type", existing.Type)
		fields.SetScalar("creator", existing.Creator)
		// Media references that are absolute external URLs are not
		// re-fetched on edit; carry them over.
		for kind, ref := range existing.Media {
			if isAbsoluteURL(ref) {
				fields.SetScalar(string(kind), ref)
			}
		}
	} else {
		fields.SetScalar("creator", req.Actor.Username)
		if !req.Comment {
			s.pinNew(ctx, req.Actor.Username, id, req.Collections)
		}
	}

	// ========================================================================
	// Step 7: Derive system tags and write
	// ========================================================================

	var systags []string
	if req.Provenance != "" {
		systags = append(systags, req.Provenance)
	}
	if req.NSFW {
		systags = append(systags, "nsfw")
	}
	fields.SetList("systags", systags)

	if err := metadata.WriteFile(base+metadata.MetaExt, fields, s.backup); err != nil {
		return "", err
	}

	s.cache.Invalidate(id)
	return id, nil
}

// pinNew pins a newly created item into the requested collections,
// defaulting to the user's default collection. The "-" sentinel
// suppresses pinning. Pin failures are logged, not fatal: the item
// itself stored successfully.
func (s *Store) pinNew(ctx context.Context, username, id string, collections []string) {
	if len(collections) == 0 {
		collections = []string{""}
	}
	for _, cid := range collections {
		if cid == "-" {
			continue
		}
		if err := s.pins.Toggle(ctx, username, cid, id, true); err != nil {
			logger.Warn("failed to pin %s into %s/%s: %v", id, username, cid, err)
		}
	}
}

// firstMediaField returns the first populated media URL field, in
// video, audio, image order.
func firstMediaField(fields metadata.Fields) (media.Kind, string) {
	for _, kind := range []media.Kind{media.KindVideo, media.KindAudio, media.KindImage} {
		if ref := fields.Scalar(string(kind)); ref != "" {
			return kind, ref
		}
	}
	return "", ""
}
