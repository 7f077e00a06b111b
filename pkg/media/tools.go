package media

import (
	"context"
	"os/exec"
	"strings"

	"github.com/octospacc/Pignio/internal/logger"
)

// OCRText runs the configured OCR engine over an image and returns the
// recognized text.
//
// Failures never propagate: a missing binary, a missing language pack
// or a crashed engine all degrade to an empty result with a debug log
// line, because alt-text synthesis must never fail the store operation
// that requested it.
func (g *Ingestor) OCRText(ctx context.Context, imagePath string, langs []string) string {
	args := []string{imagePath, "stdout"}
	if len(langs) > 0 {
		args = append(args, "-l", strings.Join(langs, "+"))
	}

	out, err := exec.CommandContext(ctx, g.ocrCommand, args...).Output()
	if err != nil {
		logger.Debug("OCR unavailable for %s: %v", imagePath, err)
		return ""
	}
	return strings.TrimSpace(string(out))
}

// VideoToolsAvailable reports whether the ffprobe binary can be
// executed. Derived-cache builders that transcode or thumbnail video
// check this before attempting work; when false, callers fall back to
// serving the original media.
func (g *Ingestor) VideoToolsAvailable(ctx context.Context) bool {
	err := exec.CommandContext(ctx, g.ffprobeCommand, "-version").Run()
	if err != nil {
		logger.Debug("video tools unavailable: %v", err)
		return false
	}
	return true
}
