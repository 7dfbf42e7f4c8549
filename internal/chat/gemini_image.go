package chat

// gemini_image.go calls the Gemini image model for the two remote operations
// of the studio: removing the background of a source image, and generating a
// background image from a text prompt. Both ask for TEXT+IMAGE output and
// return the first image part. A response without an image is a
// RemoteCallError that carries the model's text verbatim.

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/bg-studio/internal/apperr"
	"github.com/fpang/bg-studio/internal/assets"
	"github.com/fpang/bg-studio/internal/auth"
	"github.com/fpang/bg-studio/internal/encoder"
	"github.com/fpang/bg-studio/internal/metrics"
)

// EmptyPromptMessage is the validation text for a blank generation prompt.
const EmptyPromptMessage = "Prompt cannot be empty."

// DefaultTimeout bounds a single image call. Image generation can take 10-30s.
const DefaultTimeout = 120 * time.Second

// ContentGenerator is the part of *genai.Models the client needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config is injected at construction; the client never reads the environment.
type Config struct {
	APIKey          string
	RemovalModel    string
	GenerationModel string
	Timeout         time.Duration
}

// ImageClient performs background removal and generation.
type ImageClient struct {
	models          ContentGenerator
	removalModel    string
	generationModel string
	timeout         time.Duration
}

// ImageResult is one image returned by the model.
type ImageResult struct {
	// ImageData is the raw bytes of the returned image.
	ImageData []byte
	// ImageMIMEType is the MIME type reported by the model.
	ImageMIMEType string
	// Text is any text returned alongside the image.
	Text string
}

// NewGeminiClient creates a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewImageClient builds an ImageClient backed by the Gemini API.
func NewImageClient(ctx context.Context, cfg Config) (*ImageClient, error) {
	client, err := NewGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return NewImageClientWithGenerator(client.Models, cfg), nil
}

// NewImageClientWithGenerator builds an ImageClient on any ContentGenerator.
func NewImageClientWithGenerator(models ContentGenerator, cfg Config) *ImageClient {
	c := &ImageClient{
		models:          models,
		removalModel:    cfg.RemovalModel,
		generationModel: cfg.GenerationModel,
		timeout:         cfg.Timeout,
	}
	if c.removalModel == "" {
		c.removalModel = DefaultRemovalModel
	}
	if c.generationModel == "" {
		c.generationModel = DefaultGenerationModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// RemoveBackground sends the payload with the removal prompt and returns the
// cutout. It is called once per user action; there is no retry.
func (c *ImageClient) RemoveBackground(ctx context.Context, payload *encoder.ImagePayload) (*ImageResult, error) {
	if payload == nil {
		return nil, &apperr.EncodingError{Message: "no payload to send"}
	}
	data, err := payload.Bytes()
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: payload.MediaType,
				Data:     data,
			},
		},
		{Text: assets.RemovalPrompt()},
	}

	log.Info().
		Str("model", c.removalModel).
		Int("image_bytes", len(data)).
		Str("image_mime", payload.MediaType).
		Msg("Sending image to Gemini for background removal")

	return c.generateImage(ctx, "removal", c.removalModel, parts)
}

// GenerateBackground turns a text prompt into a background image. Blank
// prompts are rejected before any call is made.
func (c *ImageClient) GenerateBackground(ctx context.Context, prompt string) (*ImageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperr.Validation(EmptyPromptMessage)
	}

	log.Info().
		Str("model", c.generationModel).
		Str("prompt", truncateString(prompt, 100)).
		Msg("Sending prompt to Gemini for background generation")

	parts := []*genai.Part{{Text: assets.RenderBackgroundGenerationPrompt(prompt)}}
	return c.generateImage(ctx, "generation", c.generationModel, parts)
}

func (c *ImageClient) generateImage(ctx context.Context, operation, model string, parts []*genai.Part) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	startTime := time.Now()
	resp, err := c.models.GenerateContent(ctx, model, contents, config)
	duration := time.Since(startTime)

	rec := metrics.New().
		Dimension("Operation", operation).
		Dimension("Model", model).
		Metric("ImageCallMs", float64(duration.Milliseconds()), metrics.UnitMilliseconds)

	if err != nil {
		class := auth.Classify(err)
		rec.Dimension("Result", class.String()).Count("ImageCallResult").Flush()
		log.Error().
			Err(err).
			Str("operation", operation).
			Str("class", class.String()).
			Dur("duration", duration).
			Msg("Gemini image call failed")
		return nil, &apperr.RemoteCallError{
			Kind:    remoteFailure(class),
			Message: "Gemini " + operation + " call failed",
			Err:     err,
		}
	}

	result := extractImage(resp)
	if result.ImageData == nil {
		rec.Dimension("Result", "no_image").Count("ImageCallResult").Flush()
		reason := result.Text
		if reason == "" {
			reason = blockReason(resp)
		}
		log.Warn().
			Str("operation", operation).
			Str("text", truncateString(reason, 200)).
			Msg("Gemini returned no image")
		return nil, &apperr.RemoteCallError{Message: "model returned no image: " + reason}
	}

	rec.Dimension("Result", "success").
		Metric("ImageBytes", float64(len(result.ImageData)), metrics.UnitBytes).
		Count("ImageCallResult").
		Flush()

	log.Info().
		Str("operation", operation).
		Int("output_bytes", len(result.ImageData)).
		Str("output_mime", result.ImageMIMEType).
		Dur("duration", duration).
		Msg("Gemini image call complete")

	return result, nil
}

// extractImage takes the first inline image and all text across candidates.
func extractImage(resp *genai.GenerateContentResponse) *ImageResult {
	result := &ImageResult{}
	if resp == nil {
		return result
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && result.ImageData == nil {
				result.ImageData = part.InlineData.Data
				result.ImageMIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				result.Text += part.Text
			}
		}
	}
	return result
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "blocked: " + string(resp.PromptFeedback.BlockReason)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "empty response"
	}
	if c := resp.Candidates[0]; c != nil && c.FinishReason != "" {
		return "finish reason " + string(c.FinishReason)
	}
	return "no explanation given"
}

// remoteFailure maps the key-check classes onto image call failures.
func remoteFailure(t auth.ValidationErrorType) apperr.RemoteFailure {
	switch t {
	case auth.ErrTypeInvalidKey, auth.ErrTypeNoKey:
		return apperr.RemoteKeyRejected
	case auth.ErrTypeQuotaExceeded:
		return apperr.RemoteRateLimited
	case auth.ErrTypeNetworkError:
		return apperr.RemoteUnreachable
	default:
		return apperr.RemoteFailed
	}
}

// truncateString cuts s to at most maxLen bytes on a rune boundary,
// appending "..." if anything was dropped.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
