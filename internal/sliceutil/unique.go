// Package sliceutil provides generic slice helpers.
package sliceutil

// Unique returns items with zero values and repeats removed, keeping the
// first occurrence of each value in order. The input is not modified.
func Unique[T comparable](items []T) []T {
	if len(items) == 0 {
		return nil
	}

	var zero T
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == zero {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
