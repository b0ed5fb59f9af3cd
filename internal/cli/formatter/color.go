package formatter

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/tasktree/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen   = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow  = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed     = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue    = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple  = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim     = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg      = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader  = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold    = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
	StyleRedBold = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
)

// KindStyle colors an item by its level in the tree.
func KindStyle(kind domain.Kind) lipgloss.Style {
	switch kind {
	case domain.KindCategory:
		return StylePurple
	case domain.KindGroup:
		return StyleBlue
	case domain.KindTemplate:
		return StyleYellow
	default:
		return StyleFg
	}
}

// KindBadge renders a fixed-width kind label such as "[group   ]".
func KindBadge(kind domain.Kind) string {
	return KindStyle(kind).Render(fmt.Sprintf("[%-8s]", kind))
}

// StatusPill renders a project status with a colored dot.
func StatusPill(status string) string {
	switch domain.ProjectStatus(status) {
	case domain.ProjectActive:
		return StyleGreen.Render("● active")
	case domain.ProjectPaused:
		return StyleYellow.Render("◐ paused")
	case domain.ProjectDone:
		return StyleBlue.Render("✔ done")
	case domain.ProjectArchived:
		return StyleDim.Render("○ archived")
	case "":
		return Dim("--")
	default:
		return StyleFg.Render(status)
	}
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
