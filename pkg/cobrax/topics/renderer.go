package topics

import (
	"os"

	"github.com/charmbracelet/glamour"
)

// Renderer formats the content of a topic file. ext is the file
// extension, dot included.
type Renderer interface {
	Render(content string, ext string) string
}

// PlainRenderer shows topics as written
type PlainRenderer struct{}

func (r *PlainRenderer) Render(content string, ext string) string {
	return content
}

// GlamourRenderer renders markdown topics for the terminal
type GlamourRenderer struct {
	// Style is a glamour standard style name, or "auto"
	Style string
	// Width wraps text, 0 keeps glamour's default
	Width int
}

// NewGlamourRenderer creates a markdown renderer. NO_COLOR selects the
// plain "notty" style.
func NewGlamourRenderer() *GlamourRenderer {
	style := "auto"
	if os.Getenv("NO_COLOR") != "" {
		style = "notty"
	}
	return &GlamourRenderer{Style: style, Width: 80}
}

// Render returns non-markdown content, and markdown glamour fails on,
// unchanged
func (r *GlamourRenderer) Render(content string, ext string) string {
	if ext != ".md" {
		return content
	}

	options := []glamour.TermRendererOption{glamour.WithStandardStyle(r.Style)}
	if r.Style == "" || r.Style == "auto" {
		options = []glamour.TermRendererOption{glamour.WithAutoStyle()}
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	tr, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return out
}
