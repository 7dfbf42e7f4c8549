package session

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/apperr"
	"github.com/fpang/bg-studio/internal/compositor"
	"github.com/fpang/bg-studio/internal/filehandler"
)

// Background returns the spec a composite started now would use.
func (s *Session) Background() compositor.BackgroundSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backgroundLocked()
}

// backgroundLocked attaches the current adjustments to an image background.
func (s *Session) backgroundLocked() compositor.BackgroundSpec {
	bg := s.background
	if bg.Kind == compositor.BackgroundImage {
		bg.Adjustments = s.adjustments
	}
	return bg
}

// Adjustments returns the current adjustments.
func (s *Session) Adjustments() compositor.Adjustments {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustments
}

// SetBackgroundNone clears the background.
func (s *Session) SetBackgroundNone() {
	s.setBackground(compositor.NoBackground())
}

// SetBackgroundColor sets a solid color; unparseable colors are rejected
// and leave the current background in place.
func (s *Session) SetBackgroundColor(value string) error {
	spec, err := compositor.ColorBackground(value)
	if err != nil {
		return err
	}
	s.setBackground(spec)
	return nil
}

// SetBackgroundImage uses src as the background with the current adjustments.
func (s *Session) SetBackgroundImage(src compositor.Source) {
	s.mu.Lock()
	adj := s.adjustments
	s.mu.Unlock()
	s.setBackground(compositor.ImageBackground(src, adj))
}

// UnsupportedBackgroundMessage rejects background files the compositor
// cannot decode.
const UnsupportedBackgroundMessage = "This image format cannot be used as a background. Choose a PNG, JPEG, GIF or WebP file."

// SetBackgroundImageFile validates path as a decodable image and uses it as
// the background. The file is read when the next composite runs.
func (s *Session) SetBackgroundImageFile(path string) error {
	file, err := filehandler.LoadImageFile(path)
	if err != nil {
		return err
	}
	if !compositor.CanDecode(file.MIMEType) {
		log.Warn().Str("session", s.ID).Str("path", path).Str("mime_type", file.MIMEType).Msg("Background format not decodable")
		return apperr.Validation(UnsupportedBackgroundMessage)
	}
	s.SetBackgroundImage(compositor.FileSource{Path: path})
	return nil
}

// SetAdjustments replaces all four adjustments, each clamped to its range.
func (s *Session) SetAdjustments(adj compositor.Adjustments) compositor.Adjustments {
	adj = adj.Clamp()
	s.mu.Lock()
	s.adjustments = adj
	s.mu.Unlock()

	log.Debug().Str("session", s.ID).Interface("adjustments", adj).Msg("Adjustments updated")
	return adj
}

// ResetAdjustments restores the defaults.
func (s *Session) ResetAdjustments() {
	s.SetAdjustments(compositor.DefaultAdjustments())
}

func (s *Session) setBackground(spec compositor.BackgroundSpec) {
	if spec.Kind == compositor.BackgroundImage && spec.Source == nil {
		log.Warn().Str("session", s.ID).Msg("Ignoring image background without a source")
		return
	}
	s.mu.Lock()
	s.background = spec
	s.mu.Unlock()

	log.Debug().
		Str("session", s.ID).
		Str("kind", spec.Kind.String()).
		Str("color", spec.Color).
		Msg("Background updated")
}
