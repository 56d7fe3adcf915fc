package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob matches pattern (which may contain "**") below root and returns the
// matching regular files as a sorted List of paths joined onto root.
func Glob(root, pattern string) (List, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return List{}, fmt.Errorf("glob %q in %q: %w", pattern, root, err)
	}
	sort.Strings(matches)

	var l List
	for _, m := range matches {
		l.add(filepath.Join(root, filepath.FromSlash(m)))
	}
	return l, nil
}

// Match reports whether path matches a doublestar pattern.
func Match(pattern, path string) bool {
	ok, err := doublestar.PathMatch(pattern, path)
	return err == nil && ok
}
