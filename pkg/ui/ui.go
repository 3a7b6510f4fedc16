// Package ui provides a unified interface for rendering output in different formats.
// It supports terminal (rich), text (plain), JSON and YAML output formats.
package ui

import (
	"io"
	"os"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/ui/json"
	"github.com/arthur-debert/pushdeploy/pkg/ui/terminal"
	"github.com/arthur-debert/pushdeploy/pkg/ui/text"
	"github.com/arthur-debert/pushdeploy/pkg/ui/yaml"
)

// Renderer is the common interface for all output renderers.
type Renderer interface {
	// RenderResult renders a command result. Results implementing
	// style.Viewer are shown through their markup in text formats.
	RenderResult(result interface{}) error

	// RenderError renders an error with appropriate formatting
	RenderError(err error) error

	// RenderMessage renders a simple message, which may contain markup
	RenderMessage(msg string) error
}

// Resolve turns FormatAuto into a concrete format for output
func Resolve(format Format, output io.Writer) Format {
	if format != FormatAuto {
		return format
	}
	if file, ok := output.(*os.File); ok {
		return DetectFormat(file)
	}
	return FormatText
}

// NewRenderer creates a new renderer based on the specified format.
// It detects terminal capabilities when format is Auto.
func NewRenderer(format Format, output io.Writer) (Renderer, error) {
	switch Resolve(format, output) {
	case FormatTerminal:
		return terminal.New(output), nil
	case FormatText:
		return text.New(output), nil
	case FormatJSON:
		return json.New(output), nil
	case FormatYAML:
		return yaml.New(output), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown format: %v", format)
	}
}
