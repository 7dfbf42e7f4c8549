package cli

import (
	"errors"
	"fmt"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/compositor"
	"github.com/fpang/bg-studio/internal/filehandler"
)

// ErrCanceled is returned when the user closes a dialog without choosing.
var ErrCanceled = errors.New("selection canceled")

func imageFilters() zenity.FileFilters {
	return zenity.FileFilters{
		{
			Name:     "Image files",
			Patterns: filehandler.DialogPatterns(),
		},
	}
}

// PickImageFile opens a native file picker limited to supported images.
func PickImageFile(title string) (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title(title),
		imageFilters(),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		log.Error().Err(err).Msg("File picker failed")
		return "", fmt.Errorf("file picker failed: %w", err)
	}

	log.Info().Str("path", selected).Msg("File picked via native dialog")
	return selected, nil
}

// PickOutputDir opens a native folder picker.
func PickOutputDir() (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Directory(),
		zenity.Title("Save edited image to folder"),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		log.Error().Err(err).Msg("Directory picker failed")
		return "", fmt.Errorf("directory picker failed: %w", err)
	}

	log.Info().Str("path", selected).Msg("Directory picked via native dialog")
	return selected, nil
}

// PickColor opens a native color chooser and returns the color as a hex
// string. initial may be empty.
func PickColor(initial string) (string, error) {
	opts := []zenity.Option{zenity.Title("Background color")}
	if initial != "" {
		if c, err := compositor.ParseColor(initial); err == nil {
			opts = append(opts, zenity.Color(c))
		}
	}

	picked, err := zenity.SelectColor(opts...)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		log.Error().Err(err).Msg("Color picker failed")
		return "", fmt.Errorf("color picker failed: %w", err)
	}

	value := compositor.FormatColor(picked)
	log.Info().Str("color", value).Msg("Color picked via native dialog")
	return value, nil
}
