package style

import (
	"strings"

	"github.com/pterm/pterm"
)

// Status of a deployment or a step, as shown to the user
type Status string

const (
	StatusSuccess Status = "succeeded"
	StatusError   Status = "failed"
	StatusRunning Status = "running"
	StatusSkipped Status = "skipped"
)

// StatusStyle returns the pterm style of a status badge
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusSuccess:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case StatusError:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	case StatusRunning:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// StatusMark is the single-character indicator of a status
func StatusMark(status Status) string {
	switch status {
	case StatusSuccess:
		return SuccessMark
	case StatusError:
		return ErrorMark
	case StatusRunning:
		return PendingMark
	default:
		return InfoMark
	}
}

// Badge renders status as a padded, upper-case label. Plain badges
// carry no escape codes.
func Badge(status Status, styled bool) string {
	label := " " + strings.ToUpper(string(status)) + " "
	if !styled {
		return "[" + strings.TrimSpace(label) + "]"
	}
	return StatusStyle(status).Sprint(label)
}
