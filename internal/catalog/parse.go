package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// ParseResult holds the outcome of parsing a catalog CSV.
type ParseResult struct {
	// Models are the valid records in file order.
	Models []Model
	// Warnings lists the skipped rows.
	Warnings []*RowError
	// Rows is the number of data rows read, header excluded.
	Rows int
}

// Skipped returns the number of rows that were dropped.
func (r *ParseResult) Skipped() int {
	return len(r.Warnings)
}

// validUTF8 reports whether every field of record is valid UTF-8.
func validUTF8(record []string) bool {
	for _, field := range record {
		if !utf8.ValidString(field) {
			return false
		}
	}
	return true
}

// columns maps required column names to their index in a record.
type columns map[string]int

// ParseFile reads and parses the CSV file at path.
//
// The result is still returned alongside ErrNoValidModels so callers can
// report the row warnings that emptied the batch.
func ParseFile(path string) (*ParseResult, error) {
	// #nosec G304 - path comes from the CLI
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a catalog CSV from r.
//
// The header must name every column in RequiredColumns; otherwise a
// *HeaderError is returned and no rows are read. Each data row is then
// parsed on its own: a bad row becomes a RowError in Warnings and parsing
// moves on. If no row survives, ErrNoValidModels is returned together with
// the result.
//
// Input that is not valid UTF-8 fails the whole parse with
// ErrInvalidEncoding, so no model with mangled text is ever returned.
func Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseResult{}, ErrNoValidModels
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if !validUTF8(header) {
		return nil, fmt.Errorf("%w: header", ErrInvalidEncoding)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.Rows++

		if !validUTF8(record) {
			return nil, fmt.Errorf("%w: row %d", ErrInvalidEncoding, result.Rows)
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read csv row %d: %w", result.Rows, err)
			}
			result.Warnings = append(result.Warnings, &RowError{Row: result.Rows, Err: parseErr.Err})
			continue
		}

		model, err := parseRow(record, cols)
		if err != nil {
			result.Warnings = append(result.Warnings, &RowError{Row: result.Rows, Err: err})
			continue
		}
		result.Models = append(result.Models, model)
	}

	if len(result.Models) == 0 {
		return result, ErrNoValidModels
	}
	return result, nil
}

// indexColumns locates the required columns in header. Names are compared
// after trimming whitespace and a UTF-8 byte-order mark. When a name repeats,
// the last occurrence wins.
func indexColumns(header []string) (columns, error) {
	found := make([]string, len(header))
	index := make(columns, len(RequiredColumns))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		found[i] = name
		index[name] = i
	}

	var missing []string
	cols := make(columns, len(RequiredColumns))
	for _, name := range RequiredColumns {
		i, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing, Found: found}
	}
	return cols, nil
}

// field returns the named column of record.
func (c columns) field(record []string, name string) (string, error) {
	i := c[name]
	if i >= len(record) {
		return "", fmt.Errorf("%s: missing value", name)
	}
	return record[i], nil
}

// parseRow turns one CSV record into a Model.
func parseRow(record []string, cols columns) (Model, error) {
	values := make(map[string]string, len(RequiredColumns))
	for _, name := range RequiredColumns {
		v, err := cols.field(record, name)
		if err != nil {
			return Model{}, err
		}
		values[name] = v
	}

	order, err := ParseOrder(values[ColumnOrder])
	if err != nil {
		return Model{}, err
	}

	model := Model{
		DisplayName: strings.TrimSpace(values[ColumnDisplayName]),
		APIModel:    strings.TrimSpace(values[ColumnAPIModel]),
		IsAvailable: ParseAvailability(values[ColumnIsAvailable]),
		Order:       order,
	}
	if err := model.Validate(); err != nil {
		return Model{}, err
	}
	return model, nil
}
