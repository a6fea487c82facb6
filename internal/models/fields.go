package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// fieldSet indexes a JSON object by folded key, so IsVerified, is_verified and
// isVerified all land on "isverified".
type fieldSet map[string]json.RawMessage

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func foldKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func decodeFields(data []byte) (fieldSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields := make(fieldSet, len(raw))
	for key, value := range raw {
		folded := foldKey(key)
		if existing, ok := fields[folded]; ok && !isNull(existing) && isNull(value) {
			continue
		}
		fields[folded] = value
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (f fieldSet) raw(names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		value, ok := f[foldKey(name)]
		if ok && !isNull(value) {
			return value, true
		}
	}
	return nil, false
}

func (f fieldSet) str(names ...string) string {
	raw, ok := f.raw(names...)
	if !ok {
		return ""
	}
	return rawString(raw)
}

func rawString(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return strconv.FormatBool(flag)
	}
	return ""
}

func (f fieldSet) boolean(names ...string) bool {
	raw, ok := f.raw(names...)
	if !ok {
		return false
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag
	}
	switch strings.ToLower(rawString(raw)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

func (f fieldSet) has(names ...string) bool {
	_, ok := f.raw(names...)
	return ok
}

func (f fieldSet) integer(names ...string) int64 {
	raw, ok := f.raw(names...)
	if !ok {
		return 0
	}
	value, err := strconv.ParseFloat(rawString(raw), 64)
	if err != nil {
		return 0
	}
	return int64(value)
}

func (f fieldSet) time(names ...string) time.Time {
	text := f.str(names...)
	if text == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// strings accepts a JSON array of scalars or a comma separated string.
func (f fieldSet) strings(names ...string) []string {
	raw, ok := f.raw(names...)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if value := rawString(item); value != "" {
				out = append(out, value)
			}
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(rawString(raw), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ref reads a field that may hold either a scalar ID or an embedded object.
func (f fieldSet) ref(names ...string) (id string, name string) {
	raw, ok := f.raw(names...)
	if !ok {
		return "", ""
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		nested, err := decodeFields(raw)
		if err != nil {
			return "", ""
		}
		return nested.str("id"), nested.str("name", "title")
	}
	return rawString(raw), ""
}

// FormatTime renders a timestamp the way the backend expects it.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ParseTime accepts RFC3339, datetime-local and date-only inputs.
func ParseTime(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
