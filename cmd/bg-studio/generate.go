package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fpang/bg-studio/internal/cli"
	"github.com/fpang/bg-studio/internal/compositor"
)

var generateNameFlag string

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate a background image from a text description",
	Long: `Generate a background image from a description and save it as a PNG.
The saved file can be used later with "remove --bg-image".`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateNameFlag, "name", "background", "Base name of the saved file")
	f.StringVarP(&outDirFlag, "out", "o", "", "Output directory (overrides config)")
	f.StringVar(&s3BucketFlag, "s3-bucket", "", "Upload the result to this S3 bucket instead of disk")
	f.StringVar(&s3PrefixFlag, "s3-prefix", "", "Key prefix for S3 uploads")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		prompt = cli.NewPrompter(cmd.InOrStdin(), out).Line("Describe the background", "")
	}

	sink, err := buildSink(ctx)
	if err != nil {
		return err
	}

	client := cli.InitImageClient(ctx, appConfig, false)
	fmt.Fprintln(out, "Generating background...")
	result, err := client.GenerateBackground(ctx, prompt)
	if err != nil {
		return err
	}

	// Re-encode whatever the model returned as PNG at its native size.
	comp := compositor.New(appConfig.Canvas.Width, appConfig.Canvas.Height)
	img, err := comp.Composite(ctx, compositor.BytesSource{Data: result.ImageData, MIMEType: result.ImageMIMEType}, compositor.NoBackground())
	if err != nil {
		return err
	}

	location, err := sink.Save(ctx, generateNameFlag+".png", img.PNG)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s (%dx%d)\n", location, img.Image.Rect.Dx(), img.Image.Rect.Dy())
	return nil
}
