package refdata

import (
	"sort"
	"strings"
)

// Normalize rewrites serialized dictionaries, arrays of {"Key": k, "Value": v}
// pairs, into plain maps. Objects and other arrays are walked recursively.
func Normalize(v any) any {
	switch value := v.(type) {
	case []any:
		if pairs, ok := keyValuePairs(value); ok {
			out := make(map[string]any, len(pairs))
			for _, pair := range pairs {
				out[pair.key] = Normalize(pair.value)
			}
			return out
		}
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[key] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

type pair struct {
	key   string
	value any
}

// An empty array stays an array.
func keyValuePairs(items []any) ([]pair, bool) {
	if len(items) == 0 {
		return nil, false
	}
	pairs := make([]pair, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		key, hasKey := obj["Key"]
		value, hasValue := obj["Value"]
		if !hasKey || !hasValue {
			return nil, false
		}
		name, ok := key.(string)
		if !ok {
			return nil, false
		}
		pairs = append(pairs, pair{key: name, value: value})
	}
	return pairs, true
}

// lookup finds a property regardless of its casing.
func lookup(obj map[string]any, name string) (any, bool) {
	if value, ok := obj[name]; ok {
		return value, true
	}
	for key, value := range obj {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return nil, false
}

func toStrings(v any) []string {
	switch value := v.(type) {
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		}
		return out
	case []string:
		return append([]string(nil), value...)
	case map[string]any:
		out := make([]string, 0, len(value))
		for key := range value {
			out = append(out, key)
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}

func toStringMap(v any) map[string][]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(obj))
	for key, value := range obj {
		out[key] = toStrings(value)
	}
	return out
}
