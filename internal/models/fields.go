package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseTime reads the timestamp shapes found in stored documents: RFC3339
// strings, YYYY-MM-DD dates (midnight UTC), epoch milliseconds, and
// {seconds, nanoseconds} objects. Anything else is reported as absent.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", dateLayout} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		if t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(t).UTC(), true
	case int:
		return ParseTime(int64(t))
	case time.Time:
		return t.UTC(), !t.IsZero()
	case map[string]any:
		sec, ok := t["seconds"].(float64)
		if !ok {
			sec, ok = t["_seconds"].(float64)
		}
		if !ok {
			return time.Time{}, false
		}
		nsec, _ := t["nanoseconds"].(float64)
		return time.Unix(int64(sec), int64(nsec)).UTC(), true
	}
	return time.Time{}, false
}

// Timestamp is an optional instant. The zero value means absent and
// marshals as null.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) Valid() bool { return !t.IsZero() }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, _ := ParseTime(v)
	t.Time = parsed
	return nil
}

// String renders the stored form, empty when absent.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}

// Date is an optional calendar date stored as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD (or any ParseTime shape, truncated to the day).
func ParseDate(v any) (Date, bool) {
	t, ok := ParseTime(v)
	if !ok {
		return Date{}, false
	}
	return NewDate(t), true
}

func (d Date) Valid() bool { return !d.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, _ := ParseDate(v)
	*d = parsed
	return nil
}

// fields reads loosely typed document data without trusting any type.
type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (f fields) num(key string) (float64, bool) {
	v, ok := f[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f fields) boolean(key string) bool {
	v, _ := f[key].(bool)
	return v
}

func (f fields) timestamp(key string) Timestamp {
	t, _ := ParseTime(f[key])
	return Timestamp{Time: t}
}

func (f fields) date(key string) Date {
	d, _ := ParseDate(f[key])
	return d
}

func (f fields) strs(key string) []string {
	raw, _ := f[key].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) objects(key string) []fields {
	raw, _ := f[key].([]any)
	out := make([]fields, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, fields(m))
		}
	}
	return out
}

// first returns the first non-empty string among keys; legacy documents
// spell some fields in more than one way.
func (f fields) first(keys ...string) string {
	for _, k := range keys {
		if s := f.str(k); s != "" {
			return s
		}
	}
	return ""
}
