// Package text provides plain text output without any styling
package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/pushdeploy/pkg/style"
)

// Renderer provides plain text output without colors or styling
type Renderer struct {
	output io.Writer
}

// New creates a new text renderer
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

// RenderResult renders a result as plain text
func (r *Renderer) RenderResult(result interface{}) error {
	if v, ok := result.(style.Viewer); ok {
		return r.RenderMessage(v.Markup())
	}
	_, err := fmt.Fprintf(r.output, "%+v\n", result)
	return err
}

// RenderError renders an error as plain text
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.output, "Error: %v\n", err)
	return werr
}

// RenderMessage renders a message with its markup removed
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, strings.TrimRight(style.Strip(msg), "\n"))
	return err
}
