// Package docstore holds schemaless JSON documents grouped in collections,
// with equality queries, partial updates guarded by version tokens, and live
// subscriptions that re-deliver a collection's current result set on change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Collections known to the store.
const (
	Tasks        = "tasks"
	Projects     = "projects"
	Employees    = "employees"
	Teams        = "teams"
	Tickets      = "raiseTickets"
	UserSettings = "userSettings"
	HRFeedback   = "HR_feedback"
	Accounts     = "accounts"
)

var collections = map[string]bool{
	Tasks: true, Projects: true, Employees: true, Teams: true,
	Tickets: true, UserSettings: true, HRFeedback: true, Accounts: true,
}

// ValidCollection reports whether name is one of the store's collections.
func ValidCollection(name string) bool {
	return collections[name]
}

var (
	ErrNotFound          = errors.New("document not found")
	ErrAlreadyExists     = errors.New("document already exists")
	ErrVersionConflict   = errors.New("document version conflict")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrUnavailable       = errors.New("document store unavailable")
)

// Document is one stored record. Data never contains the metadata keys.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Data       map[string]any `json:"data"`
}

// Flatten returns Data merged with id and version, the shape API clients see.
func (d Document) Flatten() map[string]any {
	out := make(map[string]any, len(d.Data)+2)
	for k, v := range d.Data {
		out[k] = v
	}
	out["id"] = d.ID
	out["version"] = d.Version
	return out
}

// Filter is an equality predicate on a top-level scalar field.
type Filter struct {
	Field string
	Value any
}

// Where is shorthand for Filter{field, value}.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is implemented by every backend and decorator.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Create stores data under id, or under a fresh id when id is empty.
	Create(ctx context.Context, collection, id string, data map[string]any) (Document, error)
	// Update merges fields into the document. A nil value removes the field.
	// expectedVersion > 0 makes the write fail with ErrVersionConflict when the
	// stored version differs; 0 means last write wins.
	Update(ctx context.Context, collection, id string, fields map[string]any, expectedVersion int64) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

var reservedKeys = map[string]bool{"id": true, "_id": true, "version": true}

func checkCollection(collection string) error {
	if !ValidCollection(collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

// normalize round-trips data through JSON so every backend stores and returns
// the same value types (float64 numbers, []any, map[string]any). Explicit nil
// values survive as nil, which merge treats as a delete.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for k := range reservedKeys {
		delete(out, k)
	}
	return out, nil
}

// merge applies a partial update to a copy of base.
func merge(base, fields map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		if reservedKeys[k] {
			continue
		}
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// checkFilters rejects non-scalar filter values. Backends disagree on how an
// array or object compares, so only strings, numbers, booleans and null are
// accepted, and a scalar never matches a stored array.
func checkFilters(filters []Filter) error {
	for _, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return fmt.Errorf("%w: filter %q: %v", ErrInvalidDocument, f.Field, err)
		}
		switch v.(type) {
		case nil, string, float64, bool:
		default:
			return fmt.Errorf("%w: filter %q must be a scalar", ErrInvalidDocument, f.Field)
		}
	}
	return nil
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		want, err := normalizeValue(f.Value)
		if err != nil || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(raw, &out)
	return out, err
}
