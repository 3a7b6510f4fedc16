// Package yaml provides machine-readable YAML output
package yaml

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/style"
)

// Renderer writes one YAML document per call
type Renderer struct {
	output io.Writer
}

// New creates a new YAML renderer
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

func (r *Renderer) encode(v interface{}) error {
	enc := yaml.NewEncoder(r.output)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// RenderResult renders any result type as YAML
func (r *Renderer) RenderResult(result interface{}) error {
	return r.encode(result)
}

// RenderError renders an error as YAML
func (r *Renderer) RenderError(err error) error {
	doc := map[string]interface{}{
		"error": err.Error(),
		"code":  string(errors.GetErrorCode(err)),
	}
	if details := errors.GetErrorDetails(err); len(details) > 0 {
		doc["details"] = details
	}
	return r.encode(doc)
}

// RenderMessage renders a simple message as YAML, without markup
func (r *Renderer) RenderMessage(msg string) error {
	return r.encode(map[string]string{"message": style.Strip(msg)})
}
