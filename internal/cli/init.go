package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/auth"
	"github.com/fpang/bg-studio/internal/chat"
	"github.com/fpang/bg-studio/internal/config"
)

// InitImageClient resolves the API key, optionally validates it, and builds
// the image client. Exits fatally on failure.
func InitImageClient(ctx context.Context, cfg *config.Config, validate bool) *chat.ImageClient {
	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		HandleValidationError(err)
	}

	client, err := chat.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	log.Debug().Msg("connection successful - Gemini client initialized")

	if validate {
		if err := auth.ValidateAPIKey(ctx, client.Models); err != nil {
			HandleValidationError(err)
		}
		log.Info().Msg("API key validation complete - ready for operations")
	}

	return chat.NewImageClientWithGenerator(client.Models, cfg.ChatConfig(apiKey))
}
