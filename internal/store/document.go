package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/markvii/modelsync/internal/catalog"
)

// Field names of a catalog document. The mobile app reads them verbatim.
const (
	FieldList        = "list"
	FieldLastUpdated = "lastUpdated"
)

// EncodeList marshals the envelope's list as a JSON array. A nil list
// encodes as [] so a write never clears the field.
func EncodeList(env catalog.Envelope) ([]byte, error) {
	list := env.List
	if list == nil {
		list = []catalog.Model{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list: %w", err)
	}
	return data, nil
}

// EncodeListDocument marshals {"list": [...]}, the merge patch applied by
// backends that keep whole documents as JSON objects.
func EncodeListDocument(env catalog.Envelope) ([]byte, error) {
	list, err := EncodeList(env)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]json.RawMessage{FieldList: list})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// DecodeList unmarshals a stored list. A JSON null decodes as an empty list.
func DecodeList(data []byte) ([]catalog.RemoteModel, error) {
	var list []catalog.RemoteModel
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if list == nil {
		list = []catalog.RemoteModel{}
	}
	return list, nil
}

// ParseTimestamp parses an RFC 3339 timestamp as written by the SQL backends.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", FieldLastUpdated, err)
	}
	return t.UTC(), nil
}

// DecodeDocument builds a snapshot from a whole document stored as a JSON
// object. Fields other than list and lastUpdated are ignored.
func DecodeDocument(data []byte) (*Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	snap := &Snapshot{Exists: true, List: []catalog.RemoteModel{}}

	if raw, ok := fields[FieldList]; ok {
		list, err := DecodeList(raw)
		if err != nil {
			return nil, err
		}
		snap.HasList = true
		snap.List = list
	}

	if raw, ok := fields[FieldLastUpdated]; ok && !bytes.Equal(raw, []byte("null")) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", FieldLastUpdated, err)
		}
		ts, err := ParseTimestamp(s)
		if err != nil {
			return nil, err
		}
		snap.LastUpdated = ts
	}

	return snap, nil
}
