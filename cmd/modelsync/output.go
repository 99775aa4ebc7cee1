package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/sync"
	"github.com/markvii/modelsync/internal/ui"
)

// titleNoun is the capitalized target noun, e.g. "Gemini Models".
func (a *app) titleNoun() string {
	if a.target.Label == "" {
		return "Models"
	}
	return a.target.Label + " Models"
}

func (a *app) banner() {
	title := fmt.Sprintf("🔥 %s Model Updater for Mark VII", a.product())
	if a.target.Label != "" {
		title = fmt.Sprintf("🔥 %s %s Model Updater for Mark VII", a.product(), a.target.Label)
	}
	fmt.Fprintln(a.out, ui.Banner(title))
}

// loadModels parses path and prints row warnings and the outcome. Parse
// failures are printed here and returned as reported errors.
func (a *app) loadModels(path string) ([]catalog.Model, error) {
	result, err := catalog.ParseFile(path)
	if result != nil {
		for _, w := range result.Warnings {
			fmt.Fprintf(a.out, "%s Warning: Error parsing row %d: %v\n", ui.RenderWarn("⚠️"), w.Row, w.Err)
		}
	}

	var headerErr *catalog.HeaderError
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrFileNotFound):
		fmt.Fprintf(a.out, "%s Error: CSV file not found: %s\n", ui.RenderFail("❌"), path)
		return nil, reported(err)
	case errors.As(err, &headerErr):
		fmt.Fprintf(a.out, "%s Error: CSV must have columns: %s\n", ui.RenderFail("❌"), strings.Join(catalog.RequiredColumns, ", "))
		fmt.Fprintf(a.out, "   Found columns: %s\n", strings.Join(headerErr.Found, ", "))
		return nil, reported(err)
	case errors.Is(err, catalog.ErrNoValidModels):
		fmt.Fprintf(a.out, "%s No valid models found in %s\n", ui.RenderFail("❌"), path)
		return nil, reported(err)
	default:
		fmt.Fprintf(a.out, "%s Error reading CSV file: %v\n", ui.RenderFail("❌"), err)
		return nil, reported(err)
	}

	fmt.Fprintf(a.out, "%s Loaded %d %s from %s\n", ui.RenderPass("✅"), len(result.Models), a.target.Noun(), path)
	if n := result.Skipped(); n > 0 {
		fmt.Fprintf(a.out, "%s Skipped %d of %d rows\n", ui.RenderWarn("⚠️"), n, result.Rows)
	}
	return result.Models, nil
}

func entries(models []catalog.Model) []ui.Entry {
	out := make([]ui.Entry, len(models))
	for i, m := range models {
		out[i] = ui.Entry{Name: m.DisplayName, APIModel: m.APIModel, Available: m.IsAvailable}
	}
	return out
}

func remoteEntries(models []catalog.RemoteModel) []ui.Entry {
	out := make([]ui.Entry, len(models))
	for i, m := range models {
		out[i] = ui.Entry{Name: m.Name(), APIModel: m.API(), Available: m.Available()}
	}
	return out
}

func (a *app) printPreview(models []catalog.Model) {
	if limit := a.target.PreviewLimit; limit > 0 {
		fmt.Fprintf(a.out, "\n📋 Preview (first %d models):\n", limit)
	} else {
		fmt.Fprintf(a.out, "\n📋 Preview of %s:\n", a.titleNoun())
	}
	ui.WriteModels(a.out, entries(models), a.target.NameWidth, a.target.PreviewLimit, "")
}

func (a *app) printWritten(res *sync.WriteResult, models []catalog.Model) {
	fmt.Fprintf(a.out, "\n%s Successfully updated %d %s!\n", ui.RenderPass("✅"), res.Count, a.target.Noun())
	fmt.Fprintf(a.out, "📍 Location: %s\n", res.Ref)

	if limit := a.target.PreviewLimit; limit > 0 {
		fmt.Fprintf(a.out, "\n📋 First %d Models:\n", limit)
	} else {
		fmt.Fprintf(a.out, "\n📋 %s:\n", a.titleNoun())
	}
	ui.WriteModels(a.out, entries(models), a.target.NameWidth, a.target.PreviewLimit, " models")
}

func (a *app) printVerification(v *sync.Verification) {
	if v.OK() {
		fmt.Fprintf(a.out, "\n%s Verification successful!\n", ui.RenderPass("✅"))
		fmt.Fprintf(a.out, "📊 Total %s in %s: %d\n", a.target.Noun(), a.backend(), v.Count)
		return
	}
	fmt.Fprintf(a.out, "\n%s Warning: %s\n", ui.RenderWarn("⚠️"), capitalize(v.Warning()))
}

func (a *app) printListing(l *sync.Listing) {
	switch {
	case !l.Exists:
		fmt.Fprintf(a.out, "\n📋 %s document does not exist yet\n", capitalize(a.target.Noun()))
		return
	case len(l.Models) == 0:
		fmt.Fprintf(a.out, "\n📋 No %s found in %s\n", a.target.Noun(), a.backend())
	default:
		fmt.Fprintf(a.out, "\n📋 Current %s in %s (%d total):\n", a.titleNoun(), a.backend(), len(l.Models))
		ui.WriteModels(a.out, remoteEntries(l.Models), a.target.NameWidth, a.target.ListLimit, " models")
	}

	if !l.LastUpdated.IsZero() {
		fmt.Fprintf(a.out, "%s\n", ui.RenderMuted("🕒 Last updated: "+l.LastUpdated.UTC().Format(time.DateTime)+" UTC"))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
