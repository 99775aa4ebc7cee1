// Package ui renders console output for modelsync.
//
// Colors are applied only when stdout is a terminal and neither NO_COLOR
// nor --no-color asks otherwise.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	renderer *lipgloss.Renderer

	passStyle   lipgloss.Style
	warnStyle   lipgloss.Style
	failStyle   lipgloss.Style
	accentStyle lipgloss.Style
	mutedStyle  lipgloss.Style
	titleStyle  lipgloss.Style
)

func init() {
	Configure(os.Stdout, false)
}

// Configure selects the color profile for output written to w.
func Configure(w io.Writer, noColor bool) {
	renderer = lipgloss.NewRenderer(w)
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(w) {
		renderer.SetColorProfile(termenv.Ascii)
	}

	passStyle = renderer.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = renderer.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	accentStyle = renderer.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle = renderer.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle = renderer.NewStyle().Bold(true)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled reports whether styles currently emit escape sequences.
func ColorEnabled() bool {
	return renderer.ColorProfile() != termenv.Ascii
}

func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }

// Banner returns the boxed title printed at startup.
func Banner(title string) string {
	rule := strings.Repeat("=", 60)
	return fmt.Sprintf("\n%s\n%s\n%s", rule, titleStyle.Render(title), rule)
}
