// Package config loads bg-studio settings: defaults, then an optional YAML
// file, then environment overrides. The result is validated once and then
// injected into the collaborators; nothing below cmd/ reads the environment
// for these settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fpang/bg-studio/internal/auth"
	"github.com/fpang/bg-studio/internal/chat"
	"github.com/fpang/bg-studio/internal/compositor"
)

// Environment overrides. GEMINI_API_KEY is shared with auth.GetAPIKey.
const (
	EnvRemovalModel    = "BGSTUDIO_REMOVAL_MODEL"
	EnvGenerationModel = "BGSTUDIO_GENERATION_MODEL"
	EnvOutputDir       = "BGSTUDIO_OUTPUT_DIR"
	EnvS3Bucket        = "BGSTUDIO_S3_BUCKET"
	EnvLogLevel        = "BGSTUDIO_LOG_LEVEL"
	EnvMetrics         = "BGSTUDIO_METRICS"
)

// Config represents the application configuration
type Config struct {
	Gemini      GeminiConfig           `yaml:"gemini"`
	Output      OutputConfig           `yaml:"output"`
	Canvas      CanvasConfig           `yaml:"canvas"`
	Adjustments compositor.Adjustments `yaml:"adjustments"`
	LogLevel    string                 `yaml:"log_level"`
	Metrics     MetricsConfig          `yaml:"metrics"`
}

type GeminiConfig struct {
	APIKey          string        `yaml:"api_key"`
	RemovalModel    string        `yaml:"removal_model"`
	GenerationModel string        `yaml:"generation_model"`
	Timeout         time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	Dir           string        `yaml:"dir"`
	S3Bucket      string        `yaml:"s3_bucket"`
	S3Prefix      string        `yaml:"s3_prefix"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
}

// CanvasConfig is the fallback size for a foreground with no intrinsic size.
type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// File receives EMF lines; empty means stderr.
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			RemovalModel:    chat.DefaultRemovalModel,
			GenerationModel: chat.DefaultGenerationModel,
			Timeout:         chat.DefaultTimeout,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Canvas: CanvasConfig{
			Width:  compositor.DefaultCanvasSize,
			Height: compositor.DefaultCanvasSize,
		},
		Adjustments: compositor.DefaultAdjustments(),
		LogLevel:    "info",
	}
}

// Load reads the configuration file at path (if any), applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(env string, dst *string) {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(auth.APIKeyEnv, &c.Gemini.APIKey)
	set(EnvRemovalModel, &c.Gemini.RemovalModel)
	set(EnvGenerationModel, &c.Gemini.GenerationModel)
	set(EnvOutputDir, &c.Output.Dir)
	set(EnvS3Bucket, &c.Output.S3Bucket)
	set(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvMetrics); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetrics, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.Gemini.RemovalModel == "" {
		return fmt.Errorf("gemini.removal_model is required")
	}
	if c.Gemini.GenerationModel == "" {
		return fmt.Errorf("gemini.generation_model is required")
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be positive")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas width and height must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Output.PresignExpiry < 0 {
		return fmt.Errorf("output.presign_expiry must not be negative")
	}
	if c.Output.PresignExpiry > 0 && c.Output.S3Bucket == "" {
		return fmt.Errorf("output.presign_expiry requires output.s3_bucket")
	}
	if c.Adjustments.Clamp() != c.Adjustments {
		return fmt.Errorf("adjustments out of range: %+v", c.Adjustments)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// ResolveAPIKey returns the configured key, falling back to auth.GetAPIKey.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.Gemini.APIKey != "" {
		return c.Gemini.APIKey, nil
	}
	return auth.GetAPIKey()
}

// ChatConfig is the collaborator configuration for chat.NewImageClient.
func (c *Config) ChatConfig(apiKey string) chat.Config {
	return chat.Config{
		APIKey:          apiKey,
		RemovalModel:    c.Gemini.RemovalModel,
		GenerationModel: c.Gemini.GenerationModel,
		Timeout:         c.Gemini.Timeout,
	}
}
