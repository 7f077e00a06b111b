// Package media classifies and persists item media.
//
// Classification is a static table lookup: each media kind owns a set
// of allowed file extensions plus per-kind aliases mapping MIME
// subtypes (or uncommon extensions) onto a canonical stored extension.
// Anything outside the table is rejected rather than stored.
package media

import (
	"strings"

	"github.com/octospacc/Pignio/pkg/metadata"
)

// Kind identifies a class of media. The string value doubles as the
// metadata field name referencing the stored file.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindModel    Kind = "model"
	KindFont     Kind = "font"
	KindDocument Kind = "document"
	KindSWF      Kind = "swf"
	KindROM      Kind = "rom"
)

// Kinds lists every media kind in matching priority order.
var Kinds = []Kind{
	KindImage,
	KindVideo,
	KindAudio,
	KindModel,
	KindFont,
	KindDocument,
	KindSWF,
	KindROM,
}

// MetaExt is the extension of metadata files sitting next to media.
const MetaExt = metadata.MetaExt

// extensions maps each kind to its allowed stored extensions.
var extensions = map[Kind][]string{
	KindImage:    {"jpg", "jpeg", "png", "gif", "webp", "avif"},
	KindVideo:    {"mp4", "mov", "ogv", "webm", "mkv"},
	KindAudio:    {"mp3", "m4a", "flac", "opus", "ogg", "wav"},
	KindModel:    {"obj", "stl", "glb", "gltf"},
	KindFont:     {"ttf", "otf", "woff", "woff2"},
	KindDocument: {"pdf", "epub", "txt", "md"},
	KindSWF:      {"swf"},
	KindROM:      {"nes", "gb", "gbc", "gba", "sfc", "z64"},
}

// aliases maps MIME subtypes and alternate extensions onto the
// canonical stored extension for each kind.
var aliases = map[Kind]map[string]string{
	KindImage:    {"jpe": "jpg"},
	KindVideo:    {"quicktime": "mov", "mpeg": "mp4"},
	KindAudio:    {"mpeg": "mp3", "x-m4a": "m4a", "mp4": "m4a"},
	KindModel:    {"gltf+json": "gltf", "gltf-binary": "glb"},
	KindFont:     {"sfnt": "ttf"},
	KindDocument: {"plain": "txt", "markdown": "md", "epub+zip": "epub"},
	KindSWF:      {"x-shockwave-flash": "swf"},
	KindROM:      {"x-nes-rom": "nes", "x-gameboy-rom": "gb"},
}

// Classify resolves a MIME content type and/or filename to a media
// kind and the canonical extension the payload should be stored under.
// The content type wins when both are given; the filename extension is
// the fallback. The MIME top level steers kind selection so that
// audio/mpeg maps to mp3 while video/mpeg maps to mp4. Returns
// ok=false for anything outside the allowed table.
func Classify(contentType, filename string) (Kind, string, bool) {
	if top, sub, ok := splitMIME(contentType); ok {
		// Prefer the kind named by the MIME type itself.
		if hinted := Kind(top); extensions[hinted] != nil {
			if ext, ok := matchWithin(hinted, sub); ok {
				return hinted, ext, true
			}
		}
		if kind, ext, ok := matchExtension(sub); ok {
			return kind, ext, true
		}
	}

	if ext := fileExtension(filename); ext != "" {
		return matchExtension(ext)
	}

	return "", "", false
}

// FileKind reports the media kind of an on-disk filename, matching by
// extension only. Used when globbing sibling files of an item.
func FileKind(filename string) (Kind, bool) {
	lower := strings.ToLower(filename)
	for _, kind := range Kinds {
		for _, ext := range extensions[kind] {
			if strings.HasSuffix(lower, "."+ext) {
				return kind, true
			}
		}
	}
	return "", false
}

// IsMetaFile reports whether filename is a metadata file.
func IsMetaFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), MetaExt)
}

// IsSupportedFile reports whether filename belongs to an item: either
// its metadata file or a recognized media file.
func IsSupportedFile(filename string) bool {
	if IsMetaFile(filename) {
		return true
	}
	_, ok := FileKind(filename)
	return ok
}

// matchExtension finds the kind owning ext, either directly or through
// an alias, searching every kind in priority order.
func matchExtension(ext string) (Kind, string, bool) {
	ext = strings.ToLower(ext)
	for _, kind := range Kinds {
		for _, allowed := range extensions[kind] {
			if ext == allowed {
				return kind, ext, true
			}
		}
	}
	for _, kind := range Kinds {
		if mapped, ok := aliases[kind][ext]; ok {
			return kind, mapped, true
		}
	}
	return "", "", false
}

// matchWithin resolves ext against a single kind's table.
func matchWithin(kind Kind, ext string) (string, bool) {
	ext = strings.ToLower(ext)
	for _, allowed := range extensions[kind] {
		if ext == allowed {
			return ext, true
		}
	}
	if mapped, ok := aliases[kind][ext]; ok {
		return mapped, true
	}
	return "", false
}

// splitMIME splits a MIME content type into top level and subtype,
// dropping any parameters: "image/png; charset=binary" -> (image, png).
func splitMIME(contentType string) (string, string, bool) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return "", "", false
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	top, sub, found := strings.Cut(contentType, "/")
	if !found || sub == "" {
		return "", "", false
	}
	return top, sub, true
}

func fileExtension(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return strings.ToLower(filename[i+1:])
	}
	return ""
}
