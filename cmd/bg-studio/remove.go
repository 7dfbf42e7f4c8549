package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/bg-studio/internal/cli"
	"github.com/fpang/bg-studio/internal/compositor"
	"github.com/fpang/bg-studio/internal/export"
	"github.com/fpang/bg-studio/internal/session"
)

// remove flags
var (
	inputFlag      string
	pickFlag       bool
	bgColorFlag    string
	bgImageFlag    string
	bgPromptFlag   string
	opacityFlag    float64
	blurFlag       float64
	brightnessFlag float64
	grayscaleFlag  float64
	previewFlag    bool
	outDirFlag     string
	s3BucketFlag   string
	s3PrefixFlag   string
)

var removeCmd = &cobra.Command{
	Use:   "remove [image]",
	Short: "Remove an image's background and save it over a new one",
	Long: `Remove the background from an image and save the composite as
<name>-edited.png.

Without a background flag the result is transparent. When no image is given
on the command line you are asked for one (or shown a file picker with --pick),
and then asked which background to use.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	f := removeCmd.Flags()
	f.StringVarP(&inputFlag, "input", "i", "", "Image to edit")
	f.BoolVar(&pickFlag, "pick", false, "Choose files and colors in native dialogs")
	f.StringVar(&bgColorFlag, "bg-color", "", "Solid background color (#rrggbb, rgb(), or a name)")
	f.StringVar(&bgImageFlag, "bg-image", "", "Background image file")
	f.StringVar(&bgPromptFlag, "bg-prompt", "", "Generate the background from this description")
	f.Float64Var(&opacityFlag, "opacity", 100, "Background image opacity, 0-100")
	f.Float64Var(&blurFlag, "blur", 0, "Background image blur radius in px, 0-20")
	f.Float64Var(&brightnessFlag, "brightness", 100, "Background image brightness, 0-200")
	f.Float64Var(&grayscaleFlag, "grayscale", 0, "Background image grayscale, 0-100")
	f.BoolVar(&previewFlag, "preview", false, "Write a preview and wait for confirmation before saving")
	f.StringVarP(&outDirFlag, "out", "o", "", "Output directory (overrides config)")
	f.StringVar(&s3BucketFlag, "s3-bucket", "", "Upload the result to this S3 bucket instead of disk")
	f.StringVar(&s3PrefixFlag, "s3-prefix", "", "Key prefix for S3 uploads")

	removeCmd.MarkFlagsMutuallyExclusive("bg-color", "bg-image", "bg-prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	out := cmd.OutOrStdout()
	prompter := cli.NewPrompter(cmd.InOrStdin(), out)

	input := inputFlag
	if input == "" && len(args) == 1 {
		input = args[0]
	}
	interactive := input == ""
	if interactive {
		var err error
		if input, err = chooseInput(prompter); err != nil {
			return err
		}
	}

	sink, err := buildSink(ctx)
	if err != nil {
		return err
	}

	client := cli.InitImageClient(ctx, appConfig, false)
	sess := session.New(client,
		compositor.New(appConfig.Canvas.Width, appConfig.Canvas.Height),
		session.WithAdjustments(adjustmentsFromFlags(cmd)),
	)
	defer sess.Reset()

	sel, err := sess.SelectFile(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Selected %s (%s, %s)\n", sel.Name, sel.MIMEType, cli.FormatBytes(sel.Size))
	if sel.File != nil && sel.File.Metadata != nil {
		if summary := sel.File.Metadata.Summary(); summary != "" {
			fmt.Fprintf(out, "  %s\n", summary)
		}
	}

	fmt.Fprintln(out, "Removing background...")
	if err := sess.RemoveBackground(ctx); err != nil {
		return err
	}

	if err := applyBackground(ctx, cmd, sess, prompter, interactive); err != nil {
		return err
	}

	if previewFlag {
		handle, err := sess.Preview(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Preview written to %s\n", handle.Path)
		prompter.Line("Press Enter to save", "")
	}

	location, err := sess.Download(ctx, sink)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Saved %s in %s\n", location, cli.FormatDurationShort(time.Since(started)))
	return nil
}

func chooseInput(p *cli.Prompter) (string, error) {
	if pickFlag {
		return cli.PickImageFile("Select an image")
	}
	input := p.Line("Image file", "")
	if input == "" {
		return "", errors.New("no image selected")
	}
	return input, nil
}

// adjustmentsFromFlags starts from the configured adjustments and applies
// only the flags that were set.
func adjustmentsFromFlags(cmd *cobra.Command) compositor.Adjustments {
	adj := appConfig.Adjustments
	flags := cmd.Flags()
	if flags.Changed("opacity") {
		adj.Opacity = opacityFlag
	}
	if flags.Changed("blur") {
		adj.Blur = blurFlag
	}
	if flags.Changed("brightness") {
		adj.Brightness = brightnessFlag
	}
	if flags.Changed("grayscale") {
		adj.Grayscale = grayscaleFlag
	}
	return adj.Clamp()
}

// applyBackground sets the session background from flags, or asks when
// running interactively with no background flag.
func applyBackground(ctx context.Context, cmd *cobra.Command, sess *session.Session, p *cli.Prompter, interactive bool) error {
	out := cmd.OutOrStdout()

	switch {
	case bgColorFlag != "":
		return sess.SetBackgroundColor(bgColorFlag)
	case bgImageFlag != "":
		return sess.SetBackgroundImageFile(bgImageFlag)
	case bgPromptFlag != "":
		fmt.Fprintln(out, "Generating background...")
		return sess.GenerateBackground(ctx, bgPromptFlag)
	case !interactive:
		sess.SetBackgroundNone()
		return nil
	}

	choice := p.Choice("Background", []string{"none", "color", "image", "generate"}, "none")
	log.Debug().Str("choice", choice).Msg("Background chosen")

	switch choice {
	case "color":
		value, err := chooseColor(p)
		if err != nil {
			return err
		}
		return sess.SetBackgroundColor(value)
	case "image":
		path, err := chooseBackgroundImage(p)
		if err != nil {
			return err
		}
		if err := sess.SetBackgroundImageFile(path); err != nil {
			return err
		}
		sess.SetAdjustments(p.Adjustments(sess.Adjustments()))
		return nil
	case "generate":
		prompt := p.Line("Describe the background", "")
		fmt.Fprintln(out, "Generating background...")
		if err := sess.GenerateBackground(ctx, prompt); err != nil {
			return err
		}
		sess.SetAdjustments(p.Adjustments(sess.Adjustments()))
		return nil
	default:
		sess.SetBackgroundNone()
		return nil
	}
}

func chooseColor(p *cli.Prompter) (string, error) {
	if pickFlag {
		return cli.PickColor("#ffffff")
	}
	return p.Line("Color", "#ffffff"), nil
}

func chooseBackgroundImage(p *cli.Prompter) (string, error) {
	if pickFlag {
		return cli.PickImageFile("Select a background image")
	}
	return p.Line("Background image file", ""), nil
}

// pickOutputDir is the folder dialog used by --pick.
var pickOutputDir = cli.PickOutputDir

// buildSink picks S3 when a bucket is configured, otherwise a directory.
// With --pick and no --out, the directory comes from a folder dialog.
func buildSink(ctx context.Context) (export.Sink, error) {
	bucket := appConfig.Output.S3Bucket
	if s3BucketFlag != "" {
		bucket = s3BucketFlag
	}
	if bucket != "" {
		prefix := appConfig.Output.S3Prefix
		if s3PrefixFlag != "" {
			prefix = s3PrefixFlag
		}
		return export.NewS3Sink(ctx, bucket, prefix, appConfig.Output.PresignExpiry)
	}

	dir := appConfig.Output.Dir
	switch {
	case outDirFlag != "":
		dir = outDirFlag
	case pickFlag:
		picked, err := pickOutputDir()
		if err != nil {
			return nil, err
		}
		dir = picked
	}
	dir, err := cli.ResolveOutputDirectory(dir)
	if err != nil {
		return nil, err
	}
	return export.FileSink{Dir: dir}, nil
}
