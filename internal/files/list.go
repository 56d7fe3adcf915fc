package files

import (
	"fmt"
	"path/filepath"
	"slices"
)

// List is an ordered set of paths. The zero value is an empty list.
type List struct {
	paths []string
}

// Of builds a List from any mix of strings, string slices, []any, Lists and
// fmt.Stringers. Nil values are skipped and duplicates keep their first position.
func Of(values ...any) List {
	var l List
	for _, v := range values {
		l.add(v)
	}
	return l
}

func (l *List) add(v any) {
	switch v := v.(type) {
	case nil:
	case string:
		if v != "" && !slices.Contains(l.paths, filepath.Clean(v)) {
			l.paths = append(l.paths, filepath.Clean(v))
		}
	case []string:
		for _, p := range v {
			l.add(p)
		}
	case []any:
		for _, p := range v {
			l.add(p)
		}
	case List:
		for _, p := range v.paths {
			l.add(p)
		}
	case *List:
		if v != nil {
			l.add(*v)
		}
	case fmt.Stringer:
		l.add(v.String())
	}
}

// Union joins lists, preserving first-seen order.
func Union(lists ...List) List {
	var out List
	for _, l := range lists {
		out.add(l)
	}
	return out
}

// Paths returns a copy of the paths in the list.
func (l List) Paths() []string {
	return slices.Clone(l.paths)
}

// MarshalYAML renders the list as a sequence of paths.
func (l List) MarshalYAML() (any, error) { return l.Paths(), nil }

// Len is the number of paths.
func (l List) Len() int {
	return len(l.paths)
}

// Empty reports whether the list has no paths.
func (l List) Empty() bool {
	return len(l.paths) == 0
}

// Contains reports whether path is a member of the list.
func (l List) Contains(path string) bool {
	return slices.Contains(l.paths, filepath.Clean(path))
}

// String renders the list for log records.
func (l List) String() string {
	return fmt.Sprint(l.paths)
}
