package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrUnsupported means the payload could not be classified against
	// the allowed media table. Nothing was written.
	ErrUnsupported = errors.New("media: unsupported content type")

	// ErrNotHandled means the reference is neither a data URI nor an
	// absolute HTTP(S) URL. Callers treat it as "no media change
	// requested", not as a failure.
	ErrNotHandled = errors.New("media: reference not handled")
)

// Ingestor persists uploaded or remote media next to an item's
// metadata file.
//
// Remote fetches are bounded by a timeout and, when configured, by a
// shared token-bucket limiter so that a burst of archive requests
// cannot saturate outbound bandwidth. Safe for concurrent use.
type Ingestor struct {
	client  *http.Client
	limiter *rate.Limiter

	ocrCommand     string
	ffprobeCommand string
}

// Options configures an Ingestor.
type Options struct {
	// FetchTimeout bounds each remote download. Required.
	FetchTimeout time.Duration

	// FetchRate and FetchBurst configure the shared fetch limiter.
	// A zero rate disables limiting.
	FetchRate  uint
	FetchBurst uint

	// OCRCommand is the tesseract binary name or path.
	OCRCommand string

	// FFprobeCommand is the ffprobe binary name or path.
	FFprobeCommand string
}

// NewIngestor creates an Ingestor from options.
func NewIngestor(opts Options) *Ingestor {
	var limiter *rate.Limiter
	if opts.FetchRate > 0 {
		burst := opts.FetchBurst
		if burst == 0 {
			burst = opts.FetchRate
		}
		limiter = rate.NewLimiter(rate.Limit(opts.FetchRate), int(burst))
	}

	ocr := opts.OCRCommand
	if ocr == "" {
		ocr = "tesseract"
	}
	ffprobe := opts.FFprobeCommand
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}

	return &Ingestor{
		client:  &http.Client{Timeout: opts.FetchTimeout},
		limiter: limiter,
		ocrCommand:     ocr,
		ffprobeCommand: ffprobe,
	}
}

// StoreFromUpload classifies an uploaded stream by its content type
// (falling back to the client filename) and persists it at
// basePath.<ext>. Empty or unclassifiable uploads are rejected with
// ErrUnsupported and nothing is written.
func (g *Ingestor) StoreFromUpload(ctx context.Context, r io.Reader, contentType, filename, basePath string) (Kind, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	kind, ext, ok := Classify(contentType, filename)
	if !ok {
		return "", "", ErrUnsupported
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", "", ErrUnsupported
	}

	path := basePath + "." + ext
	if err := writeBlob(path, data); err != nil {
		return "", "", err
	}
	return kind, path, nil
}

// StoreFromURL persists the media referenced by a data URI or an
// absolute HTTP(S) URL at basePath.<ext>.
//
// Anything else (relative path, malformed scheme) returns
// ErrNotHandled without touching the filesystem, letting the caller
// keep the reference as-is. Unclassifiable payloads return
// ErrUnsupported; transient fetch failures propagate as errors.
func (g *Ingestor) StoreFromURL(ctx context.Context, reference, basePath string) (Kind, string, error) {
	lower := strings.ToLower(reference)

	switch {
	case strings.HasPrefix(lower, "data:") && strings.Contains(lower, "/"):
		return g.storeDataURI(ctx, reference, basePath)

	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "//"):
		return g.storeRemote(ctx, reference, basePath)

	default:
		return "", "", ErrNotHandled
	}
}

// storeDataURI decodes an inline base64 payload:
// "data:image/png;base64,...."
func (g *Ingestor) storeDataURI(ctx context.Context, uri, basePath string) (Kind, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	head, payload, found := strings.Cut(uri, ",")
	if !found {
		return "", "", ErrUnsupported
	}

	contentType := strings.TrimPrefix(head, "data:")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	kind, ext, ok := Classify(contentType, "")
	if !ok {
		return "", "", ErrUnsupported
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode data URI: %w", err)
	}

	path := basePath + "." + ext
	if err := writeBlob(path, data); err != nil {
		return "", "", err
	}
	return kind, path, nil
}

func (g *Ingestor) storeRemote(ctx context.Context, url, basePath string) (Kind, string, error) {
	data, mime, err := g.Fetch(ctx, url)
	if err != nil {
		return "", "", err
	}

	kind, ext, ok := Classify(mime, url)
	if !ok {
		return "", "", ErrUnsupported
	}

	path := basePath + "." + ext
	if err := writeBlob(path, data); err != nil {
		return "", "", err
	}
	return kind, path, nil
}

// Fetch downloads a remote URL within the configured timeout and rate
// limit, returning the body and the cleaned Content-Type. Shared by
// media archiving, proxy cache building and page scraping.
func (g *Ingestor) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	// Scheme-relative references default to https.
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid media URL %q: %w", url, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("failed to fetch %q: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response from %q: %w", url, err)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return data, strings.ToLower(strings.TrimSpace(mime)), nil
}

func writeBlob(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write media file: %w", err)
	}
	return nil
}
