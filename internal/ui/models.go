package ui

import (
	"fmt"
	"io"
)

// Availability returns the status glyph for a model.
func Availability(available bool) string {
	if available {
		return "✅"
	}
	return "❌"
}

// ModelLine formats one numbered catalog entry. The display name is padded
// to width so the arrows line up.
func ModelLine(index int, available bool, name string, width int, apiModel string) string {
	return fmt.Sprintf("   %2d. %s %-*s → %s", index, Availability(available), width, name, RenderAccent(apiModel))
}

// Entry is one row of a model table.
type Entry struct {
	Name      string
	APIModel  string
	Available bool
}

// WriteModels prints entries as numbered lines. When limit is positive and
// smaller than len(entries), only the first limit are printed followed by
// an "... and N more<suffix>" trailer. It returns the number printed.
func WriteModels(w io.Writer, entries []Entry, width, limit int, suffix string) int {
	shown := len(entries)
	if limit > 0 && limit < shown {
		shown = limit
	}
	for i := 0; i < shown; i++ {
		e := entries[i]
		fmt.Fprintln(w, ModelLine(i+1, e.Available, e.Name, width, e.APIModel))
	}
	if rest := len(entries) - shown; rest > 0 {
		fmt.Fprintln(w, RenderMuted(fmt.Sprintf("   ... and %d more%s", rest, suffix)))
	}
	return shown
}
