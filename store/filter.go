package store

import "strings"

// Filter returns the entities whose key contains the query,
// case-insensitively, preserving the original order. An empty or
// whitespace-only query returns the input unfiltered. Pure function, safe
// to call on every keystroke; debouncing is a UI concern.
func Filter[T any](items []T, query string, key func(T) string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, e := range items {
		if strings.Contains(strings.ToLower(key(e)), q) {
			out = append(out, e)
		}
	}
	return out
}
