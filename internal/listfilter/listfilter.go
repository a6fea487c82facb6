package listfilter

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// All is the category sentinel meaning "no constraint".
const All = "ALL"

type Predicate[T any] func(T) bool

// Apply returns the items satisfying every predicate. Nil predicates are
// skipped and the input slice is never modified.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](item T, preds []Predicate[T]) bool {
	for _, pred := range preds {
		if pred != nil && !pred(item) {
			return false
		}
	}
	return true
}

// Text matches a case-insensitive substring in any of the fields.
func Text[T any](term string, fields func(T) []string) Predicate[T] {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	return func(item T) bool {
		for _, field := range fields(item) {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
}

func Category[T any](value string, get func(T) string) Predicate[T] {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, All) {
		return nil
	}
	return func(item T) bool {
		return get(item) == value
	}
}

// Date matches when the timestamp falls on day (YYYY-MM-DD) in loc.
func Date[T any](day string, get func(T) time.Time, loc *time.Location) Predicate[T] {
	day = strings.TrimSpace(day)
	if day == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	return func(item T) bool {
		ts := get(item)
		if ts.IsZero() {
			return false
		}
		return ts.In(loc).Format("2006-01-02") == day
	}
}

// SortBy returns a stably sorted copy.
func SortBy[T any](items []T, less func(a, b T) bool) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// Query is the filter state of a list page.
type Query struct {
	Search   string
	Status   string
	Type     string
	Role     string
	Action   string
	Date     string
	District string
}

func FromQuery(values url.Values) Query {
	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}
	return Query{
		Search:   get("q"),
		Status:   get("status"),
		Type:     get("type"),
		Role:     get("role"),
		Action:   get("action"),
		Date:     get("date"),
		District: get("district"),
	}
}
