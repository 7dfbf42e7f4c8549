package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bg-studio/internal/compositor"
)

// Prompter reads answers line by line from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter. Use os.Stdin and os.Stdout for a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter prompts on the terminal.
func StdPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// Line asks for a line of text. An empty answer (or a read failure)
// returns def.
func (p *Prompter) Line(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	input, err := p.in.ReadString('\n')
	if err != nil && input == "" {
		if err != io.EOF {
			log.Warn().Err(err).Msg("Failed to read input, using default")
		}
		return def
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// Directory asks for a directory, defaulting to the current one.
func (p *Prompter) Directory(label string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return p.Line(label, cwd)
}

// Number asks for a number, re-asking until the answer parses.
// At most three attempts are made before def is returned.
func (p *Prompter) Number(label string, def float64) float64 {
	defText := strconv.FormatFloat(def, 'f', -1, 64)
	for attempt := 0; attempt < 3; attempt++ {
		answer := p.Line(label, defText)
		v, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return v
		}
		fmt.Fprintf(p.out, "%q is not a number.\n", answer)
	}
	return def
}

// Adjustments asks for each background adjustment in turn, starting from
// current. The result is clamped.
func (p *Prompter) Adjustments(current compositor.Adjustments) compositor.Adjustments {
	adj := compositor.Adjustments{
		Opacity:    p.Number(fmt.Sprintf("Opacity (0-%d)", compositor.MaxOpacity), current.Opacity),
		Blur:       p.Number(fmt.Sprintf("Blur px (0-%d)", compositor.MaxBlur), current.Blur),
		Brightness: p.Number(fmt.Sprintf("Brightness (0-%d)", compositor.MaxBrightness), current.Brightness),
		Grayscale:  p.Number(fmt.Sprintf("Grayscale (0-%d)", compositor.MaxGrayscale), current.Grayscale),
	}
	return adj.Clamp()
}

// Choice asks the user to pick one of options by number or by name.
// Returns def when the answer matches nothing.
func (p *Prompter) Choice(label string, options []string, def string) string {
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	answer := p.Line(label, def)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt
		}
	}
	return def
}
