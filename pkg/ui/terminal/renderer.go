// Package terminal provides rich terminal output with colors and styling
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/pushdeploy/pkg/style"
)

// Renderer styles markup with lipgloss
type Renderer struct {
	output io.Writer
}

// New creates a new terminal renderer
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

// RenderResult renders a result, styled when it provides markup
func (r *Renderer) RenderResult(result interface{}) error {
	if v, ok := result.(style.Viewer); ok {
		return r.RenderMessage(v.Markup())
	}
	_, err := fmt.Fprintf(r.output, "%+v\n", result)
	return err
}

// RenderError renders an error. The message is not parsed as markup.
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.output, "%s %v\n", style.ErrorStyle.Render(style.ErrorMark+" Error:"), err)
	return werr
}

// RenderMessage renders a message with its markup styled
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, strings.TrimRight(style.Render(msg), "\n"))
	return err
}
