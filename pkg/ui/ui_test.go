package ui_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/ui"
)

type sample struct {
	Commit   string   `json:"commit" yaml:"commit"`
	Services []string `json:"services" yaml:"services"`
}

func (s sample) Markup() string {
	return "deployed [commit]" + s.Commit + "[/commit]"
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   ui.Format
		expected string
	}{
		{ui.FormatAuto, "auto"},
		{ui.FormatTerminal, "term"},
		{ui.FormatText, "text"},
		{ui.FormatJSON, "json"},
		{ui.FormatYAML, "yaml"},
		{ui.Format(999), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.format.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected ui.Format
		wantErr  bool
	}{
		{"", ui.FormatAuto, false},
		{"auto", ui.FormatAuto, false},
		{"TERM", ui.FormatTerminal, false},
		{"terminal", ui.FormatTerminal, false},
		{"plain", ui.FormatText, false},
		{"json", ui.FormatJSON, false},
		{"yml", ui.FormatYAML, false},
		{"xml", ui.FormatAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ui.ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolve_NonFileIsText(t *testing.T) {
	assert.Equal(t, ui.FormatText, ui.Resolve(ui.FormatAuto, &bytes.Buffer{}))
	assert.Equal(t, ui.FormatJSON, ui.Resolve(ui.FormatJSON, &bytes.Buffer{}))
}

func TestTextRenderer(t *testing.T) {
	var out bytes.Buffer
	r, err := ui.NewRenderer(ui.FormatText, &out)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(sample{Commit: "abc"}))
	require.NoError(t, r.RenderMessage("[success]ok[/success]"))
	require.NoError(t, r.RenderError(errors.New(errors.ErrHook, "boom")))

	assert.Equal(t, "deployed abc\nok\nError: [HOOK] boom\n", out.String())
}

func TestJSONRenderer(t *testing.T) {
	var out bytes.Buffer
	r, err := ui.NewRenderer(ui.FormatJSON, &out)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(sample{Commit: "abc", Services: []string{"a.service"}}))
	var decoded sample
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []string{"a.service"}, decoded.Services)

	out.Reset()
	require.NoError(t, r.RenderError(errors.New(errors.ErrPrecondition, "exists").WithDetail("path", "versions/abc")))
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &obj))
	assert.Equal(t, "PRECONDITION", obj["code"])
	assert.Equal(t, map[string]interface{}{"path": "versions/abc"}, obj["details"])
}

func TestYAMLRenderer(t *testing.T) {
	var out bytes.Buffer
	r, err := ui.NewRenderer(ui.FormatYAML, &out)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(sample{Commit: "abc", Services: []string{"a.service"}}))
	assert.Equal(t, "commit: abc\nservices:\n  - a.service\n", out.String())

	out.Reset()
	require.NoError(t, r.RenderError(errors.New(errors.ErrLock, "busy")))
	var obj map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &obj))
	assert.Equal(t, "LOCK", obj["code"])
}

func TestTerminalRenderer(t *testing.T) {
	var out bytes.Buffer
	r, err := ui.NewRenderer(ui.FormatTerminal, &out)
	require.NoError(t, err)

	require.NoError(t, r.RenderResult(sample{Commit: "abc"}))
	assert.Contains(t, out.String(), "abc")
	assert.NotContains(t, out.String(), "[commit]")
}

func TestStructuredMessagesDropMarkup(t *testing.T) {
	var out bytes.Buffer
	r, err := ui.NewRenderer(ui.FormatJSON, &out)
	require.NoError(t, err)

	require.NoError(t, r.RenderMessage("[muted]nothing to deploy[/muted]"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "nothing to deploy", decoded["message"])
}
