// Package encoder turns a selected image into the payload sent to the
// remote image model: base64 text plus a media type.
//
// The bytes are first wrapped in a data-URL envelope
// ("data:<mime>;base64,<data>") and the payload is then parsed back out of
// that envelope. An envelope without a parseable media type or payload is a
// hard EncodingError.
package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/apperr"
	"github.com/fpang/bg-studio/internal/filehandler"
)

// ImagePayload is the model-ready form of one source file.
type ImagePayload struct {
	// Data is standard base64 text.
	Data string
	// MediaType is the bare type/subtype, e.g. "image/png".
	MediaType string
}

// Bytes decodes the payload back into the original bytes.
func (p *ImagePayload) Bytes() ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, &apperr.EncodingError{Message: "payload is not valid base64", Err: err}
	}
	return decoded, nil
}

// DataURL renders the payload as a data-URL envelope.
func (p *ImagePayload) DataURL() string {
	return "data:" + p.MediaType + ";base64," + p.Data
}

// Encode reads r to the end and returns its payload. declaredType is the
// caller's idea of the media type; when it is empty or unparseable the type
// is sniffed from the content.
func Encode(ctx context.Context, r io.Reader, declaredType string) (*ImagePayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, &apperr.EncodingError{Message: "read source", Err: err}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &apperr.EncodingError{Message: "read source", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &apperr.EncodingError{Message: "read source", Err: err}
	}

	mediaType := resolveMediaType(declaredType, data)
	envelope := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)

	payload, err := ParseDataURL(envelope)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("source_bytes", len(data)).
		Int("encoded_length", len(payload.Data)).
		Str("media_type", payload.MediaType).
		Str("declared_type", declaredType).
		Msg("Source encoded")

	return payload, nil
}

// EncodeFile opens path and encodes it, declaring the type from its extension.
func EncodeFile(ctx context.Context, path string) (*ImagePayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperr.EncodingError{Message: "open source", Err: err}
	}
	defer f.Close()

	declared, _ := filehandler.GetMIMEType(filepath.Ext(path))
	return Encode(ctx, f, declared)
}

// ParseDataURL splits a base64 data URL into its payload and media type.
func ParseDataURL(envelope string) (*ImagePayload, error) {
	rest, ok := strings.CutPrefix(envelope, "data:")
	if !ok {
		return nil, &apperr.EncodingError{Message: "malformed envelope: missing data: scheme"}
	}

	header, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, &apperr.EncodingError{Message: "malformed envelope: missing payload separator"}
	}

	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, &apperr.EncodingError{Message: "malformed envelope: payload is not base64"}
	}

	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil || !strings.Contains(parsed, "/") {
		return nil, &apperr.EncodingError{Message: fmt.Sprintf("malformed envelope: unparseable media type %q", mediaType), Err: err}
	}

	if data == "" {
		return nil, &apperr.EncodingError{Message: "malformed envelope: empty payload"}
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return nil, &apperr.EncodingError{Message: "malformed envelope: payload is not valid base64", Err: err}
	}

	return &ImagePayload{Data: data, MediaType: parsed}, nil
}

// resolveMediaType prefers a parseable declared type and falls back to
// content sniffing. An empty source sniffs to nothing, which later fails
// envelope parsing.
func resolveMediaType(declaredType string, data []byte) string {
	if declaredType != "" {
		if parsed, _, err := mime.ParseMediaType(declaredType); err == nil && strings.Contains(parsed, "/") {
			return parsed
		}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	detected := mimetype.Detect(data)
	parsed, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return ""
	}
	return parsed
}
