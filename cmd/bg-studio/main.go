package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/bg-studio/internal/cli"
	"github.com/fpang/bg-studio/internal/config"
	"github.com/fpang/bg-studio/internal/logging"
	"github.com/fpang/bg-studio/internal/metrics"
)

// Set at build time with -ldflags "-X main.version=... -X main.commitHash=...".
var (
	version    = "dev"
	commitHash = ""
)

// Global flags
var (
	configFlag   string
	logLevelFlag string
)

// appConfig is loaded once in PersistentPreRunE.
var (
	appConfig     *config.Config
	metricsCloser io.Closer
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "bg-studio",
	Short: "AI background removal and replacement for a single image",
	Long: `bg-studio sends an image to a Gemini image model to remove its background,
places the cutout over a new background, and saves the result as a PNG.

The new background can be transparent, a solid color, an image of your own,
or an image generated from a text prompt. Image backgrounds can be faded,
blurred, brightened, or desaturated without affecting the subject.

Examples:
  bg-studio remove -i portrait.jpg
  bg-studio remove -i portrait.jpg --bg-color "#1e90ff" -o ./edited
  bg-studio remove -i dog.png --bg-image park.jpg --blur 6 --opacity 80
  bg-studio remove -i cat.webp --bg-prompt "sunlit wooden kitchen" --s3-bucket my-exports
  bg-studio remove --pick    # choose files and color in native dialogs
  bg-studio generate "misty pine forest at dawn"
  bg-studio validate-key`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.Version = version

	rootCmd.AddCommand(removeCmd, generateCmd, validateKeyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.Fail(err)
	}
}

// setup loads configuration and initializes logging and metrics for every
// subcommand.
func setup(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	appConfig = cfg

	logging.Init(cfg.LogLevel)

	if cfg.Metrics.Enabled {
		var w io.Writer = os.Stderr
		if cfg.Metrics.File != "" {
			f, err := os.OpenFile(cfg.Metrics.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open metrics file: %w", err)
			}
			metricsCloser = f
			w = f
		}
		metrics.Configure(cfg.Metrics.Namespace, w)
	}

	logging.NewStartupLogger("bg-studio").
		Version(version).
		CommitHash(commitHash).
		Model("removal", cfg.Gemini.RemovalModel).
		Model("generation", cfg.Gemini.GenerationModel).
		Export("dir", cfg.Output.Dir).
		Export("s3Bucket", cfg.Output.S3Bucket).
		Feature("metrics", cfg.Metrics.Enabled).
		Feature("configFile", configFlag != "").
		Config("command", cmd.Name()).
		Config("canvas", fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height)).
		Config("timeout", cfg.Gemini.Timeout.String()).
		InitDuration(time.Since(start)).
		Log()

	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	metrics.Configure("", nil)
	if metricsCloser != nil {
		if err := metricsCloser.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close metrics file")
		}
	}
}
