package style

import "github.com/charmbracelet/lipgloss"

// Palette. Every color adapts to light and dark terminals.
var (
	PrimaryColor   = lipgloss.AdaptiveColor{Light: "#007ACC", Dark: "#3D9EFF"}
	SecondaryColor = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#A0A8B0"}

	SuccessColor = lipgloss.AdaptiveColor{Light: "#28A745", Dark: "#4CDD76"}
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#DC3545", Dark: "#FF6B7D"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD54F"}
	InfoColor    = lipgloss.AdaptiveColor{Light: "#17A2B8", Dark: "#4DD0E1"}

	HeadingColor = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#F8F9FA"}
	MutedColor   = lipgloss.AdaptiveColor{Light: "#6C757D", Dark: "#ADB5BD"}

	// deployment entities
	ServiceColor = lipgloss.AdaptiveColor{Light: "#0EA5E9", Dark: "#38BDF8"}
	CommitColor  = lipgloss.AdaptiveColor{Light: "#8B5CF6", Dark: "#A78BFA"}
	StepColor    = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
)
