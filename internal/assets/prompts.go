// Package assets provides the prompt templates sent to the image model.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// BackgroundRemovalPrompt is sent alongside every source image.
//
//go:embed prompts/background-removal.txt
var BackgroundRemovalPrompt string

//go:embed prompts/background-generation.txt
var backgroundGenerationTemplate string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var generationPromptTmpl = template.Must(template.New("generation").Parse(backgroundGenerationTemplate))

// PromptData holds the dynamic data injected into prompt templates.
type PromptData struct {
	// Scene is the user's description of the background.
	Scene string
}

// RenderBackgroundGenerationPrompt wraps the user's scene description.
func RenderBackgroundGenerationPrompt(scene string) string {
	return renderTemplate(generationPromptTmpl, PromptData{Scene: strings.TrimSpace(scene)})
}

// RemovalPrompt returns BackgroundRemovalPrompt without trailing whitespace.
func RemovalPrompt() string {
	return strings.TrimSpace(BackgroundRemovalPrompt)
}

// renderTemplate executes a pre-parsed template. Execution errors are not
// expected with these templates; whatever rendered is returned.
func renderTemplate(tmpl *template.Template, data PromptData) string {
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}
