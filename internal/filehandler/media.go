// Package filehandler decides which files can be selected as a source or
// background image and extracts what the session shows about them.
//
// Type decisions are made from the declared MIME type when the caller has
// one, and from the file extension otherwise. EXIF metadata is best-effort
// (evanoberholster/imagemeta) and never blocks a selection.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/apperr"
)

// SupportedImageExtensions maps selectable image extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// NotAnImageMessage is the validation text for a non-image selection.
const NotAnImageMessage = "Please select an image file."

// ImageFile is a selected image on disk.
type ImageFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
	Metadata *ImageMetadata
}

// LoadImageFile stats and validates a selected file. Non-image files are
// rejected with a ValidationError before anything is read.
func LoadImageFile(filePath string) (*ImageFile, error) {
	log.Debug().Str("path", filePath).Msg("Loading image file")

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, apperr.Validation(NotAnImageMessage)
	}

	file := &ImageFile{
		Path:     filePath,
		Name:     filepath.Base(filePath),
		MIMEType: mimeType,
		Size:     info.Size(),
	}

	meta, err := ExtractImageMetadata(filePath)
	if err != nil {
		log.Debug().Err(err).Str("path", filePath).Msg("No EXIF metadata, continuing without it")
	} else {
		file.Metadata = meta
	}

	log.Info().
		Str("path", filePath).
		Str("mime_type", mimeType).
		Int64("size_bytes", info.Size()).
		Msg("Image file selected")

	return file, nil
}

// ValidateImageSelection rejects anything that is not an image. A non-empty
// declaredType wins over the name's extension.
func ValidateImageSelection(name, declaredType string) error {
	if declaredType != "" {
		if IsImageMIME(declaredType) {
			return nil
		}
		return apperr.Validation(NotAnImageMessage)
	}
	if IsImage(filepath.Ext(name)) {
		return nil
	}
	return apperr.Validation(NotAnImageMessage)
}

// GetMIMEType returns the MIME type for a given image extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage returns true if the file extension corresponds to an image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsImageMIME returns true for any image/* media type.
func IsImageMIME(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return strings.HasPrefix(mimeType, "image/") && len(mimeType) > len("image/")
}

// DialogPatterns returns glob patterns for native file pickers.
func DialogPatterns() []string {
	patterns := make([]string, 0, len(SupportedImageExtensions))
	for ext := range SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}
