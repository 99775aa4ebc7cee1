package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the parser. Check them with errors.Is:
//
//	if errors.Is(err, catalog.ErrNoValidModels) {
//	    // nothing to publish
//	}
var (
	// ErrFileNotFound is returned when the CSV file does not exist.
	ErrFileNotFound = errors.New("csv file not found")

	// ErrMissingColumns is returned when the header lacks one or more
	// required columns. The concrete error is a *HeaderError.
	ErrMissingColumns = errors.New("csv is missing required columns")

	// ErrNoValidModels is returned when no row survived validation,
	// including empty and header-only files.
	ErrNoValidModels = errors.New("no valid models found")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("csv is not valid utf-8")

	// ErrEmptyField is returned for a row whose displayName or apiModel is
	// blank after trimming.
	ErrEmptyField = errors.New("field is empty")

	// ErrInvalidOrder is returned for a row whose order is not a base-10
	// integer.
	ErrInvalidOrder = errors.New("order is not an integer")
)

// HeaderError describes a header that lacks required columns.
type HeaderError struct {
	Missing []string
	Found   []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("csv must have columns: %s (found: %s)",
		strings.Join(RequiredColumns, ", "), strings.Join(e.Found, ", "))
}

// Unwrap lets errors.Is match ErrMissingColumns.
func (e *HeaderError) Unwrap() error {
	return ErrMissingColumns
}

// RowError reports a data row that was skipped. Row is 1-indexed and does
// not count the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
