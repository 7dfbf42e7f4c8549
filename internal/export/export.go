// Package export hands a finished composite to its destination under a
// deterministic name. Sinks accept encoded PNG bytes only; they never
// re-encode or inspect the image.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Suffix is appended to the original file's stem.
const Suffix = "-edited"

// ContentType is the media type of every exported artifact.
const ContentType = "image/png"

// fallbackStem names the download when the original name has no usable stem.
const fallbackStem = "image"

// Sink stores an exported PNG and returns where it went (path, s3:// URI
// or URL).
type Sink interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

// DownloadName derives "<stem>-edited.png" from the original file name.
// Directories are dropped and only the last extension is removed, so
// "holiday.photo.jpg" becomes "holiday.photo-edited.png".
func DownloadName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.TrimSpace(stem)
	if stem == "" || stem == "." || stem == "/" {
		stem = fallbackStem
	}
	return stem + Suffix + ".png"
}

// FileSink writes exports into a local directory.
type FileSink struct {
	Dir string
}

// Save writes png to Dir/name with mode 0644, creating Dir if needed.
// An existing file of the same name is replaced.
func (s FileSink) Save(ctx context.Context, name string, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("export name %q must not contain a directory", name)
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("bytes", len(png)).
		Msg("Composite written to disk")

	return path, nil
}
