// Package json provides machine-readable JSON output
package json

import (
	"encoding/json"
	"io"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/style"
)

// Renderer provides JSON output for machine consumption
type Renderer struct {
	encoder *json.Encoder
}

// New creates a new JSON renderer
func New(output io.Writer) *Renderer {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return &Renderer{encoder: encoder}
}

// RenderResult renders any result type as JSON
func (r *Renderer) RenderResult(result interface{}) error {
	return r.encoder.Encode(result)
}

// ErrorObject is the JSON shape of an error
type ErrorObject struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RenderError renders an error as JSON
func (r *Renderer) RenderError(err error) error {
	return r.encoder.Encode(ErrorObject{
		Error:   err.Error(),
		Code:    string(errors.GetErrorCode(err)),
		Details: errors.GetErrorDetails(err),
	})
}

// RenderMessage renders a simple message as JSON, without markup
func (r *Renderer) RenderMessage(msg string) error {
	return r.encoder.Encode(map[string]string{"message": style.Strip(msg)})
}
