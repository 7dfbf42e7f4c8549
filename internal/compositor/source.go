package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	// Decoders for every format a source may arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// decodableTypes are the media types the registered decoders read.
var decodableTypes = map[string]bool{
	"image/gif":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// CanDecode reports whether a source of the given media type can be loaded.
// HEIC and other formats the model accepts as input are not decodable here.
func CanDecode(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return decodableTypes[mimeType]
}

// Source is a handle to a bitmap that is decoded on demand.
type Source interface {
	Load(ctx context.Context) (image.Image, error)
}

// BytesSource decodes an encoded image held in memory.
type BytesSource struct {
	Data     []byte
	MIMEType string
}

// Load decodes the bytes.
func (s BytesSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", describeType(s.MIMEType), err)
	}
	return img, nil
}

// FileSource decodes an image file from disk.
type FileSource struct {
	Path string
}

// Load opens and decodes the file.
func (s FileSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", s.Path, err)
	}
	return img, nil
}

// ImageSource wraps an already decoded image.
type ImageSource struct {
	Image image.Image
}

// Load returns the wrapped image.
func (s ImageSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Image == nil {
		return nil, errors.New("no image")
	}
	return s.Image, nil
}

func describeType(mimeType string) string {
	if mimeType == "" {
		return "unknown"
	}
	return mimeType
}
