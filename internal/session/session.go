// Package session holds the state of one editing session and the actions
// that change it: select a source, remove its background, choose a
// background, adjust it, preview, and download the composite.
//
// Long actions (encoding, remote calls, compositing, export) are guarded so
// that at most one is outstanding; a second one fails fast with a
// ValidationError instead of queueing. Background edits are cheap and are
// accepted at any time; a composite works on a snapshot taken when it
// starts.
package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/apperr"
	"github.com/fpang/bg-studio/internal/chat"
	"github.com/fpang/bg-studio/internal/compositor"
	"github.com/fpang/bg-studio/internal/encoder"
	"github.com/fpang/bg-studio/internal/export"
	"github.com/fpang/bg-studio/internal/filehandler"
	"github.com/fpang/bg-studio/internal/metrics"
)

// User-facing validation messages.
const (
	BusyMessage        = "Another operation is still running."
	NoSelectionMessage = "Select an image first."
	NoCutoutMessage    = "Remove the background before downloading."
)

// ErrBusy is returned when an action starts while another is running.
var ErrBusy = apperr.Validation(BusyMessage)

// ImageEditor is the remote collaborator; *chat.ImageClient satisfies it.
type ImageEditor interface {
	RemoveBackground(ctx context.Context, payload *encoder.ImagePayload) (*chat.ImageResult, error)
	GenerateBackground(ctx context.Context, prompt string) (*chat.ImageResult, error)
}

// Selection describes the chosen source file.
type Selection struct {
	Name     string
	MIMEType string
	Size     int64
	// File is set when the source came from disk.
	File *filehandler.ImageFile
}

// PreviewHandle is a preview image written to disk. It is owned by the
// session and removed when superseded or on Reset.
type PreviewHandle struct {
	ID   string
	Path string
}

// Session is the explicit state of one editing session.
type Session struct {
	ID string

	editor     ImageEditor
	compositor *compositor.Compositor
	previewDir string

	mu          sync.Mutex
	busy        bool
	selection   *Selection
	payload     *encoder.ImagePayload
	cutout      *compositor.BytesSource
	background  compositor.BackgroundSpec
	adjustments compositor.Adjustments
	preview     *PreviewHandle
}

// Option configures a Session.
type Option func(*Session)

// WithPreviewDir sets where preview files are written (default os.TempDir).
func WithPreviewDir(dir string) Option {
	return func(s *Session) { s.previewDir = dir }
}

// WithAdjustments sets the initial adjustments; they are clamped.
func WithAdjustments(adj compositor.Adjustments) Option {
	return func(s *Session) { s.adjustments = adj.Clamp() }
}

// New creates an empty session.
func New(editor ImageEditor, comp *compositor.Compositor, opts ...Option) *Session {
	s := &Session{
		ID:          uuid.New().String(),
		editor:      editor,
		compositor:  comp,
		previewDir:  os.TempDir(),
		background:  compositor.NoBackground(),
		adjustments: compositor.DefaultAdjustments(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compositor == nil {
		s.compositor = compositor.New(0, 0)
	}
	log.Debug().Str("session", s.ID).Msg("Session created")
	return s
}

// begin marks the session busy or fails with ErrBusy.
func (s *Session) begin(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		log.Warn().Str("session", s.ID).Str("action", action).Msg("Rejected action while busy")
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Busy reports whether an action is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// SelectFile validates and encodes the file at path. A new selection
// drops any previous cutout and preview.
func (s *Session) SelectFile(ctx context.Context, path string) (*Selection, error) {
	if err := s.begin("select"); err != nil {
		return nil, err
	}
	defer s.end()

	file, err := filehandler.LoadImageFile(path)
	if err != nil {
		return nil, err
	}
	payload, err := encoder.EncodeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	sel := &Selection{Name: file.Name, MIMEType: payload.MediaType, Size: file.Size, File: file}
	s.setSelection(sel, payload)
	return sel, nil
}

// SelectData is SelectFile for content that does not live on disk. The
// declared type wins over the name when deciding whether it is an image.
func (s *Session) SelectData(ctx context.Context, name, declaredType string, r io.Reader) (*Selection, error) {
	if err := s.begin("select"); err != nil {
		return nil, err
	}
	defer s.end()

	if err := filehandler.ValidateImageSelection(name, declaredType); err != nil {
		return nil, err
	}
	if declaredType == "" {
		declaredType, _ = filehandler.GetMIMEType(filepath.Ext(name))
	}
	payload, err := encoder.Encode(ctx, r, declaredType)
	if err != nil {
		return nil, err
	}
	if !filehandler.IsImageMIME(payload.MediaType) {
		return nil, apperr.Validation(filehandler.NotAnImageMessage)
	}

	raw, err := payload.Bytes()
	if err != nil {
		return nil, err
	}
	sel := &Selection{Name: filepath.Base(name), MIMEType: payload.MediaType, Size: int64(len(raw))}
	s.setSelection(sel, payload)
	return sel, nil
}

func (s *Session) setSelection(sel *Selection, payload *encoder.ImagePayload) {
	s.mu.Lock()
	s.selection = sel
	s.payload = payload
	s.cutout = nil
	old := s.preview
	s.preview = nil
	s.mu.Unlock()

	releasePreview(old)

	log.Info().
		Str("session", s.ID).
		Str("name", sel.Name).
		Str("mime_type", sel.MIMEType).
		Msg("Source selected")
}

// RemoveBackground sends the selected image to the remote model and keeps
// the returned cutout. The payload is dropped after a successful call; on
// failure it is kept so the action can be tried again.
func (s *Session) RemoveBackground(ctx context.Context) error {
	if err := s.begin("remove"); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	payload := s.payload
	hasCutout := s.cutout != nil
	s.mu.Unlock()
	if payload == nil {
		if hasCutout {
			return nil
		}
		return apperr.Validation(NoSelectionMessage)
	}

	start := time.Now()
	result, err := s.editor.RemoveBackground(ctx, payload)
	elapsed := time.Since(start)
	s.record("removal", "RemovalMs", elapsed, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cutout = &compositor.BytesSource{Data: result.ImageData, MIMEType: result.ImageMIMEType}
	s.payload = nil
	old := s.preview
	s.preview = nil
	s.mu.Unlock()
	releasePreview(old)

	log.Info().
		Str("session", s.ID).
		Int("cutout_bytes", len(result.ImageData)).
		Dur("duration", elapsed).
		Msg("Background removed")
	return nil
}

// GenerateBackground asks the remote model for a background and makes it
// the current image background.
func (s *Session) GenerateBackground(ctx context.Context, prompt string) error {
	if err := s.begin("generate"); err != nil {
		return err
	}
	defer s.end()

	start := time.Now()
	result, err := s.editor.GenerateBackground(ctx, prompt)
	elapsed := time.Since(start)

	var valErr *apperr.ValidationError
	if !errors.As(err, &valErr) {
		s.record("generation", "GenerationMs", elapsed, err)
	}
	if err != nil {
		return err
	}

	s.SetBackgroundImage(compositor.BytesSource{Data: result.ImageData, MIMEType: result.ImageMIMEType})
	return nil
}

// Composite merges the cutout over a snapshot of the current background.
func (s *Session) Composite(ctx context.Context) (*compositor.Result, error) {
	if err := s.begin("composite"); err != nil {
		return nil, err
	}
	defer s.end()
	return s.composite(ctx, false)
}

func (s *Session) composite(ctx context.Context, preview bool) (*compositor.Result, error) {
	s.mu.Lock()
	cutout := s.cutout
	bg := s.backgroundLocked()
	s.mu.Unlock()

	if cutout == nil {
		return nil, apperr.Validation(NoCutoutMessage)
	}

	start := time.Now()
	var result *compositor.Result
	var err error
	if preview {
		result, err = s.compositor.Preview(ctx, cutout, bg)
	} else {
		result, err = s.compositor.Composite(ctx, cutout, bg)
	}
	if !preview {
		s.record("composite", "CompositeMs", time.Since(start), err)
	}
	return result, err
}

// Preview renders the on-screen preview to a file and returns its handle.
// The previous handle is released.
func (s *Session) Preview(ctx context.Context) (*PreviewHandle, error) {
	if err := s.begin("preview"); err != nil {
		return nil, err
	}
	defer s.end()

	result, err := s.composite(ctx, true)
	if err != nil {
		return nil, err
	}

	handle := &PreviewHandle{ID: uuid.New().String()}
	handle.Path = filepath.Join(s.previewDir, "bg-studio-preview-"+handle.ID+".png")
	if err := os.WriteFile(handle.Path, result.PNG, 0600); err != nil {
		return nil, &apperr.CompositingError{Stage: apperr.EncodeFailed, Err: err}
	}

	s.mu.Lock()
	old := s.preview
	s.preview = handle
	s.mu.Unlock()
	releasePreview(old)

	log.Debug().Str("session", s.ID).Str("path", handle.Path).Msg("Preview written")
	return handle, nil
}

// Download composites and hands the PNG to sink as "<stem>-edited.png".
// A failed composite never reaches the sink.
func (s *Session) Download(ctx context.Context, sink export.Sink) (string, error) {
	if err := s.begin("download"); err != nil {
		return "", err
	}
	defer s.end()

	result, err := s.composite(ctx, false)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	name := export.DownloadName("")
	if s.selection != nil {
		name = export.DownloadName(s.selection.Name)
	}
	s.mu.Unlock()

	location, err := sink.Save(ctx, name, result.PNG)
	if err != nil {
		return "", err
	}

	metrics.New().
		Dimension("Operation", "export").
		Metric("ExportBytes", float64(len(result.PNG)), metrics.UnitBytes).
		Property("session", s.ID).
		Flush()

	log.Info().
		Str("session", s.ID).
		Str("location", location).
		Int("width", result.Image.Rect.Dx()).
		Int("height", result.Image.Rect.Dy()).
		Msg("Composite exported")
	return location, nil
}

// Reset returns the session to its initial state and releases the preview.
// An outstanding action keeps running; its result lands in the reset state.
func (s *Session) Reset() {
	s.mu.Lock()
	s.selection = nil
	s.payload = nil
	s.cutout = nil
	s.background = compositor.NoBackground()
	s.adjustments = compositor.DefaultAdjustments()
	old := s.preview
	s.preview = nil
	s.mu.Unlock()

	releasePreview(old)
	log.Debug().Str("session", s.ID).Msg("Session reset")
}

// Selection returns the current selection, or nil.
func (s *Session) Selection() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// HasCutout reports whether a background has been removed.
func (s *Session) HasCutout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cutout != nil
}

// CurrentPreview returns the live preview handle, or nil.
func (s *Session) CurrentPreview() *PreviewHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

func (s *Session) record(operation, metric string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.New().
		Dimension("Operation", operation).
		Dimension("Result", result).
		Metric(metric, float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Property("session", s.ID).
		Flush()
}

func releasePreview(h *PreviewHandle) {
	if h == nil {
		return
	}
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", h.Path).Msg("Failed to remove preview file")
	}
}
