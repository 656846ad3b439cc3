package record

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	FieldID           = "id"
	FieldLastModified = "last_modified"
	FieldSynced       = "synced"
)

// Record is a single row of a synchronized table. Field values keep the
// shapes produced by encoding/json (string, float64, bool, nested maps).
type Record map[string]any

// Match is a field-equality filter. All pairs must match.
type Match map[string]any

var epoch = time.Unix(0, 0).UTC()

// Key returns the first non-empty value among fields, rendered as a string.
func (r Record) Key(fields ...string) string {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if v, ok := r[f]; ok {
			if s := String(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// LastModified returns the record's last_modified instant. Absent or
// unparsable values count as the Unix epoch.
func (r Record) LastModified() time.Time {
	t, _ := r.Timestamp()
	return t
}

// Timestamp is LastModified that also reports whether the instant is usable.
// An absent field is the epoch and usable; a value that cannot be parsed is
// not.
func (r Record) Timestamp() (time.Time, bool) {
	raw, ok := r[FieldLastModified]
	if !ok || raw == nil {
		return epoch, true
	}

	switch v := raw.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	case time.Time:
		return v.UTC(), true
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	case int64:
		return time.UnixMilli(v).UTC(), true
	case int:
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return epoch, false
}

// Touch stamps last_modified with t.
func (r Record) Touch(t time.Time) {
	r[FieldLastModified] = t.UTC().Format(time.RFC3339Nano)
}

func (r Record) Synced() bool {
	switch v := r[FieldSynced].(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	case string:
		return v == "1" || v == "true"
	}
	return false
}

func (r Record) SetSynced(synced bool) {
	if synced {
		r[FieldSynced] = 1
		return
	}
	r[FieldSynced] = 0
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies every field of patch into r.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		r[k] = v
	}
}

// Matches reports whether every pair of m is present in rec.
func (m Match) Matches(rec Record) bool {
	for field, want := range m {
		got, ok := rec[field]
		if !ok || String(got) != String(want) {
			return false
		}
	}
	return true
}

// String renders a scalar field value for keys and comparisons.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Decode parses a JSON object into a Record.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrInvalidData
	}
	return rec, nil
}
