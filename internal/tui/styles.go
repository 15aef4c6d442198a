package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Colors defines the color palette for the dashboard.
var Colors = struct {
	// Base colors
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color

	// Title/text colors
	TitleNormal   lipgloss.Color
	TitleSelected lipgloss.Color

	// Status colors
	Queued    lipgloss.Color
	Progress  lipgloss.Color
	Completed lipgloss.Color
	Failed    lipgloss.Color
	Revoked   lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow

	TitleNormal:   lipgloss.Color("#DFE6E9"), // Light gray
	TitleSelected: lipgloss.Color("#FFEAA7"), // Yellow (selected)

	Queued:    lipgloss.Color("#74B9FF"), // Light blue
	Progress:  lipgloss.Color("#FDCB6E"), // Yellow
	Completed: lipgloss.Color("#00B894"), // Green
	Failed:    lipgloss.Color("#D63031"), // Red
	Revoked:   lipgloss.Color("#636E72"), // Gray
}

// Styles contains all the lipgloss styles for the dashboard.
type Styles struct {
	// Header
	Header     lipgloss.Style
	HeaderText lipgloss.Style
	Label      lipgloss.Style

	// Connection indicator
	ConnOpen       lipgloss.Style
	ConnConnecting lipgloss.Style
	ConnClosed     lipgloss.Style

	// Task list
	TaskNormal     lipgloss.Style
	TaskSelected   lipgloss.Style
	TaskMeta       lipgloss.Style
	CursorNormal   lipgloss.Style
	CursorSelected lipgloss.Style
	Empty          lipgloss.Style

	// Footer
	Footer lipgloss.Style
}

// DefaultStyles returns the default styles for the dashboard.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary).
			MarginBottom(1),
		HeaderText: lipgloss.NewStyle().
			Foreground(Colors.TitleNormal),
		Label: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		ConnOpen:       lipgloss.NewStyle().Foreground(Colors.Success).Bold(true),
		ConnConnecting: lipgloss.NewStyle().Foreground(Colors.Warning),
		ConnClosed:     lipgloss.NewStyle().Foreground(Colors.Error),

		TaskNormal:     lipgloss.NewStyle().Foreground(Colors.TitleNormal),
		TaskSelected:   lipgloss.NewStyle().Foreground(Colors.TitleSelected).Bold(true),
		TaskMeta:       lipgloss.NewStyle().Foreground(Colors.Muted),
		CursorNormal:   lipgloss.NewStyle().Foreground(Colors.Muted),
		CursorSelected: lipgloss.NewStyle().Foreground(Colors.Primary).Bold(true),
		Empty:          lipgloss.NewStyle().Foreground(Colors.Muted).Italic(true),

		Footer: lipgloss.NewStyle().MarginTop(1),
	}
}

// StatusStyle returns the badge style for a task status.
func (s Styles) StatusStyle(status domain.TaskStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case domain.StatusQueued:
		return base.Foreground(Colors.Queued)
	case domain.StatusProgress:
		return base.Foreground(Colors.Progress)
	case domain.StatusCompleted:
		return base.Foreground(Colors.Completed)
	case domain.StatusFailed:
		return base.Foreground(Colors.Failed)
	case domain.StatusRevoked:
		return base.Foreground(Colors.Revoked)
	default:
		return base.Foreground(Colors.Muted)
	}
}

// ConnStyle returns the style of the connection indicator.
func (s Styles) ConnStyle(state domain.ConnectionState) lipgloss.Style {
	switch state {
	case domain.ConnOpen:
		return s.ConnOpen
	case domain.ConnConnecting:
		return s.ConnConnecting
	default:
		return s.ConnClosed
	}
}
