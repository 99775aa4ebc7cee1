package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names of the CSV header. They double as the field names of the
// remote document, which the mobile app reads verbatim.
const (
	ColumnDisplayName = "displayName"
	ColumnAPIModel    = "apiModel"
	ColumnIsAvailable = "isAvailable"
	ColumnOrder       = "order"
)

// RequiredColumns lists the header columns in canonical order.
var RequiredColumns = []string{ColumnDisplayName, ColumnAPIModel, ColumnIsAvailable, ColumnOrder}

// Placeholder is shown for remote entries missing a name or API identifier.
const Placeholder = "N/A"

var truthyTokens = map[string]bool{
	"true": true,
	"yes":  true,
	"1":    true,
	"y":    true,
}

// Model is one selectable AI model in the published catalog.
type Model struct {
	DisplayName string `json:"displayName" firestore:"displayName"`
	APIModel    string `json:"apiModel" firestore:"apiModel"`
	IsAvailable bool   `json:"isAvailable" firestore:"isAvailable"`
	Order       int    `json:"order" firestore:"order"`
}

// Validate checks that the identifying fields are present.
func (m Model) Validate() error {
	if m.DisplayName == "" {
		return fmt.Errorf("%s: %w", ColumnDisplayName, ErrEmptyField)
	}
	if m.APIModel == "" {
		return fmt.Errorf("%s: %w", ColumnAPIModel, ErrEmptyField)
	}
	return nil
}

// ParseAvailability reports whether s is one of the truthy tokens
// (true, yes, 1, y), ignoring case and surrounding whitespace. Any other
// value, including the empty string, is false.
func ParseAvailability(s string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseOrder parses a base-10 integer, ignoring surrounding whitespace.
func ParseOrder(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOrder, trimmed)
	}
	return n, nil
}

// Envelope is the persisted form of a catalog: the whole list plus the time
// of the write. A write replaces List wholesale; it is never merged element
// by element.
//
// LastUpdated is left zero when writing. The store assigns it from its own
// clock; for Firestore the serverTimestamp option does this on the wire.
type Envelope struct {
	List        []Model   `json:"list" firestore:"list"`
	LastUpdated time.Time `json:"lastUpdated" firestore:"lastUpdated,serverTimestamp"`
}

// NewEnvelope wraps a copy of models, preserving their order.
func NewEnvelope(models []Model) Envelope {
	list := make([]Model, len(models))
	copy(list, models)
	return Envelope{List: list}
}

// RemoteModel is a list entry as read back from the store. Entries written
// by other tools may lack fields, so every field is optional.
type RemoteModel struct {
	DisplayName *string `json:"displayName,omitempty" firestore:"displayName"`
	APIModel    *string `json:"apiModel,omitempty" firestore:"apiModel"`
	IsAvailable *bool   `json:"isAvailable,omitempty" firestore:"isAvailable"`
	Order       *int64  `json:"order,omitempty" firestore:"order"`
}

// Name returns the display name, or Placeholder when absent.
func (r RemoteModel) Name() string {
	if r.DisplayName == nil {
		return Placeholder
	}
	return *r.DisplayName
}

// API returns the API identifier, or Placeholder when absent.
func (r RemoteModel) API() string {
	if r.APIModel == nil {
		return Placeholder
	}
	return *r.APIModel
}

// Available returns the availability flag. A missing flag displays as
// available, matching how the app treats it.
func (r RemoteModel) Available() bool {
	if r.IsAvailable == nil {
		return true
	}
	return *r.IsAvailable
}
