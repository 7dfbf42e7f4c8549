package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/apperr"
	"github.com/fpang/bg-studio/internal/auth"
)

// ResolveOutputDirectory checks that path is a directory (creating it when
// missing) and returns the absolute path.
func ResolveOutputDirectory(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		log.Info().Str("path", dirPath).Msg("Created output directory")
	case err != nil:
		return "", fmt.Errorf("failed to access directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("path is not a directory: %s", dirPath)
	}

	if absPath, err := filepath.Abs(dirPath); err == nil {
		dirPath = absPath
	}
	return dirPath, nil
}

// HandleValidationError processes auth.ValidationError and exits with appropriate messaging.
func HandleValidationError(err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY or store it in ~/.bg-studio/credentials.gpg")
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	os.Exit(1)
}

// Fail prints the single user-facing sentence for err and exits non-zero.
// The full chain goes to the debug log.
func Fail(err error) {
	log.Debug().Err(err).Msg("Command failed")
	fmt.Fprintln(os.Stderr, apperr.UserMessage(err))
	os.Exit(1)
}
