package ui

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/arthur-debert/pushdeploy/pkg/errors"
)

// Format selects how command results are written
type Format int

const (
	FormatAuto Format = iota
	FormatTerminal
	FormatText
	FormatJSON
	FormatYAML
)

var formatNames = map[Format]string{
	FormatAuto:     "auto",
	FormatTerminal: "term",
	FormatText:     "text",
	FormatJSON:     "json",
	FormatYAML:     "yaml",
}

// aliases accepted by ParseFormat besides the canonical names
var formatAliases = map[string]Format{
	"":         FormatAuto,
	"terminal": FormatTerminal,
	"plain":    FormatText,
	"yml":      FormatYAML,
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat reads the value of -o/--output, case-insensitively
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(s)
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	if f, ok := formatAliases[s]; ok {
		return f, nil
	}
	return FormatAuto, errors.Newf(errors.ErrInvalidInput,
		"unknown output format %q (want auto, term, text, json or yaml)", s)
}

// DetectFormat picks terminal output only for a color-capable tty on
// output, and plain text otherwise. Hook runs always end up with text
// since git pipes their output.
func DetectFormat(output *os.File) Format {
	if os.Getenv("NO_COLOR") != "" {
		return FormatText
	}
	fd := output.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}
