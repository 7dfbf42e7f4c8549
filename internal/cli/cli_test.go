package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/bg-studio/internal/compositor"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{12 * time.Second, "0:12"},
		{90 * time.Second, "1:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.in); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  sunset beach  \n\n"), &out)

	if got := p.Line("Prompt", ""); got != "sunset beach" {
		t.Errorf("Line() = %q", got)
	}
	if got := p.Line("Color", "#ffffff"); got != "#ffffff" {
		t.Errorf("empty answer = %q, want default", got)
	}
	if got := p.Line("Color", "black"); got != "black" {
		t.Errorf("EOF answer = %q, want default", got)
	}
	if !strings.Contains(out.String(), "Color [#ffffff]: ") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestPrompter_LastLineWithoutNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("forest"), &bytes.Buffer{})
	if got := p.Line("Prompt", ""); got != "forest" {
		t.Errorf("Line() = %q, want forest", got)
	}
}

func TestPrompter_Number(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("lots\n42.5\n"), &out)

	if got := p.Number("Blur", 0); got != 42.5 {
		t.Errorf("Number() = %v, want 42.5", got)
	}
	if !strings.Contains(out.String(), `"lots" is not a number.`) {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrompter_Adjustments(t *testing.T) {
	p := NewPrompter(strings.NewReader("50\n99\n\n10\n"), &bytes.Buffer{})

	got := p.Adjustments(compositor.DefaultAdjustments())
	want := compositor.Adjustments{Opacity: 50, Blur: compositor.MaxBlur, Brightness: 100, Grayscale: 10}
	if got != want {
		t.Errorf("Adjustments() = %+v, want %+v", got, want)
	}
}

func TestPrompter_Choice(t *testing.T) {
	options := []string{"none", "color", "image", "generate"}

	tests := []struct {
		answer string
		want   string
	}{
		{"2\n", "color"},
		{"IMAGE\n", "image"},
		{"9\n", "none"},
		{"\n", "none"},
	}
	for _, tt := range tests {
		p := NewPrompter(strings.NewReader(tt.answer), &bytes.Buffer{})
		if got := p.Choice("Background", options, "none"); got != tt.want {
			t.Errorf("Choice(%q) = %q, want %q", tt.answer, got, tt.want)
		}
	}
}

func TestResolveOutputDirectory(t *testing.T) {
	base := t.TempDir()

	created := filepath.Join(base, "new", "nested")
	got, err := ResolveOutputDirectory(created)
	if err != nil {
		t.Fatalf("ResolveOutputDirectory() error = %v", err)
	}
	if got != created {
		t.Errorf("path = %q, want %q", got, created)
	}
	if info, err := os.Stat(created); err != nil || !info.IsDir() {
		t.Error("directory was not created")
	}

	file := filepath.Join(base, "file.txt")
	os.WriteFile(file, []byte("x"), 0644)
	if _, err := ResolveOutputDirectory(file); err == nil {
		t.Error("expected error for a regular file")
	}
}
