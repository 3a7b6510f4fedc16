package style

import (
	"github.com/charmbracelet/lipgloss"
)

// ErrorStyle is used for fatal errors printed outside a renderer
var ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

// tagStyles maps markup tags to the style of their content
var tagStyles = map[string]lipgloss.Style{
	"title":   lipgloss.NewStyle().Foreground(HeadingColor).Bold(true),
	"bold":    lipgloss.NewStyle().Bold(true),
	"muted":   lipgloss.NewStyle().Foreground(MutedColor),
	"success": lipgloss.NewStyle().Foreground(SuccessColor).Bold(true),
	"error":   ErrorStyle,
	"warning": lipgloss.NewStyle().Foreground(WarningColor).Bold(true),
	"info":    lipgloss.NewStyle().Foreground(InfoColor),
	"code":    lipgloss.NewStyle().Foreground(PrimaryColor),
	"path":    lipgloss.NewStyle().Foreground(SecondaryColor).Italic(true),

	"service": lipgloss.NewStyle().Foreground(ServiceColor).Bold(true),
	"commit":  lipgloss.NewStyle().Foreground(CommitColor),
	"step":    lipgloss.NewStyle().Foreground(StepColor),
}

// Indicators
const (
	SuccessMark = "✓"
	ErrorMark   = "✗"
	WarningMark = "!"
	InfoMark    = "•"
	PendingMark = "○"
)

// ShortCommit abbreviates a full commit id for display
func ShortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
