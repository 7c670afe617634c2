package models

import "unicode/utf8"

// MergeByID appends the items of incoming whose id is not yet present.
// Existing entries are never replaced and order of first appearance is kept,
// so merging the same batch twice is a no-op.
func MergeByID[T any](existing, incoming []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, item := range existing {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	for _, item := range incoming {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// TruncateRunes shortens s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
