// Package ui renders ruffdev's terminal output: colored diagnostics and the
// per-run status lines printed around the watched command's own output.
package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Semantic colors
var (
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Info        = lipgloss.Color("#2196F3") // Blue

	LightMuted = lipgloss.Color("#6a737d")
	DarkMuted  = lipgloss.Color("#8b949e")
)

// Styles holds the styles bound to one output stream.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

// NewStyles builds styles for w. Color is only used when w is a terminal;
// NO_COLOR and similar are honored by termenv.
func NewStyles(w io.Writer) Styles {
	renderer := lipgloss.NewRenderer(w)
	muted := LightMuted
	if isTerminal(w) {
		if renderer.HasDarkBackground() {
			muted = DarkMuted
		}
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return Styles{
		Error:   renderer.NewStyle().Foreground(Destructive),
		Warning: renderer.NewStyle().Foreground(Warning).Bold(true),
		Success: renderer.NewStyle().Foreground(Success),
		Info:    renderer.NewStyle().Foreground(Info),
		Muted:   renderer.NewStyle().Foreground(muted),
		Bold:    renderer.NewStyle().Bold(true),
	}
}

// PlainStyles renders no escape sequences at all.
func PlainStyles() Styles {
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(termenv.Ascii)
	plain := renderer.NewStyle()
	return Styles{Error: plain, Warning: plain, Success: plain, Info: plain, Muted: plain, Bold: plain}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
