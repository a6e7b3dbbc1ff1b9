package util

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of a map in ascending order
func SortedKeys[K cmp.Ordered, V any](val map[K]V) []K {
	out := make([]K, 0, len(val))
	for k := range val {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
