package set

import "sort"

type ordered interface {
	~int | ~string
}

// Set is an unordered collection of distinct values. Values returns them sorted so output is deterministic.
type Set[T ordered] struct {
	values map[T]struct{}
}

func NewSet[T ordered](vals ...T) *Set[T] {
	s := &Set[T]{values: make(map[T]struct{}, len(vals))}
	s.Add(vals...)
	return s
}

func (s *Set[T]) Add(vals ...T) {
	for _, val := range vals {
		s.values[val] = struct{}{}
	}
}

func (s *Set[T]) Has(val T) bool {
	_, ok := s.values[val]
	return ok
}

func (s *Set[T]) Len() int {
	return len(s.values)
}

func (s *Set[T]) Values() []T {
	values := make([]T, 0, len(s.values))
	for val := range s.values {
		values = append(values, val)
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i] < values[j]
	})
	return values
}
