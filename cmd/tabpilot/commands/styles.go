package commands

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every command's output.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent
	coralPink   = lipgloss.Color("#FFCCCB") // secondary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // success and tool names
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	promptStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	toolResultStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	approvalBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(salmonPink).
				Padding(0, 1)

	answerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mintGreen).
			Padding(0, 1)
)
