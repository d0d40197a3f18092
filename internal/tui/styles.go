package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the player.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FFF87")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorCyan    = lipgloss.Color("#5FD7FF")
	ColorGray    = lipgloss.Color("#808080")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
)

// Base styles reused by the view.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	ChapterStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PlayingStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	ProgressFillStyle = lipgloss.NewStyle().
				Foreground(ColorCyan)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(ColorDimGray)

	CurrentSentenceStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FrameStyle = lipgloss.NewStyle().
			Padding(0, 1)
)
