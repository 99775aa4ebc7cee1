package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// samples holds the built-in sample catalogs, keyed by name.
var samples = map[string][]Model{
	"gemini": {
		{DisplayName: "Gemini 2.0 Flash (Experimental)", APIModel: "gemini-2.0-flash-exp", IsAvailable: true, Order: 1},
		{DisplayName: "Gemini 1.5 Flash", APIModel: "gemini-1.5-flash", IsAvailable: true, Order: 2},
		{DisplayName: "Gemini 1.5 Flash-8B", APIModel: "gemini-1.5-flash-8b", IsAvailable: true, Order: 3},
		{DisplayName: "Gemini 1.5 Pro", APIModel: "gemini-1.5-pro", IsAvailable: true, Order: 4},
		{DisplayName: "Gemini 1.0 Pro", APIModel: "gemini-1.0-pro", IsAvailable: true, Order: 5},
	},
}

// Sample returns a copy of the named built-in sample catalog.
func Sample(name string) ([]Model, bool) {
	models, ok := samples[name]
	if !ok {
		return nil, false
	}
	out := make([]Model, len(models))
	copy(out, models)
	return out, true
}

// WriteCSV writes models as CSV with the canonical header.
func WriteCSV(w io.Writer, models []Model) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns); err != nil {
		return err
	}
	for _, m := range models {
		available := "FALSE"
		if m.IsAvailable {
			available = "TRUE"
		}
		row := []string{m.DisplayName, m.APIModel, available, strconv.Itoa(m.Order)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSample writes models to path as a catalog CSV. The file is written
// to a temporary name first and renamed into place.
func WriteSample(path string, models []Model) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	// #nosec G304 - path comes from the CLI
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := WriteCSV(f, models); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
