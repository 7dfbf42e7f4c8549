package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata is the EXIF summary shown when a source image is selected.
type ImageMetadata struct {
	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string

	// Raw fields for debugging
	RawFields map[string]string
}

// ExtractImageMetadata reads EXIF from an image file. Only the metadata
// blocks are read, not the pixel data. PNG and WebP usually carry nothing
// and return an error, which callers treat as "no metadata".
func ExtractImageMetadata(filePath string) (*ImageMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{
		RawFields: make(map[string]string),
	}

	// DateTimeOriginal > CreateDate > ModifyDate
	if !exifData.DateTimeOriginal().IsZero() {
		metadata.DateTaken = exifData.DateTimeOriginal()
		metadata.HasDate = true
		metadata.RawFields["DateTimeOriginal"] = exifData.DateTimeOriginal().String()
	} else if !exifData.CreateDate().IsZero() {
		metadata.DateTaken = exifData.CreateDate()
		metadata.HasDate = true
		metadata.RawFields["CreateDate"] = exifData.CreateDate().String()
	} else if !exifData.ModifyDate().IsZero() {
		metadata.DateTaken = exifData.ModifyDate()
		metadata.HasDate = true
		metadata.RawFields["ModifyDate"] = exifData.ModifyDate().String()
	}

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)
	if metadata.CameraMake != "" {
		metadata.RawFields["Make"] = metadata.CameraMake
	}
	if metadata.CameraModel != "" {
		metadata.RawFields["Model"] = metadata.CameraModel
	}

	log.Debug().
		Str("path", filePath).
		Bool("has_date", metadata.HasDate).
		Str("camera", metadata.Camera()).
		Msg("Image metadata extraction complete")

	return metadata, nil
}

// Camera returns "make model", or "" when neither is known.
func (m *ImageMetadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Summary formats the metadata as one line for the terminal.
func (m *ImageMetadata) Summary() string {
	var parts []string
	if m.HasDate {
		parts = append(parts, "taken "+m.DateTaken.Format("Monday, January 2, 2006 at 3:04 PM"))
	}
	if camera := m.Camera(); camera != "" {
		parts = append(parts, "camera "+camera)
	}
	if len(parts) == 0 {
		return "no EXIF metadata"
	}
	return strings.Join(parts, ", ")
}
