package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Stale reports whether outputs need rebuilding from inputs. Outputs are
// stale when there are none, when any is missing, or when the newest input
// was modified after the oldest output. Missing inputs are ignored: they are
// either produced by another task or reported by the action that reads them.
func Stale(inputs, outputs List) (bool, error) {
	if outputs.Empty() {
		return true, nil
	}

	oldest, missing, err := oldestModTime(outputs)
	if err != nil {
		return false, err
	}
	if missing {
		return true, nil
	}

	newest, err := newestModTime(inputs)
	if err != nil {
		return false, err
	}
	return newest.After(oldest), nil
}

func oldestModTime(l List) (time.Time, bool, error) {
	var oldest time.Time
	for i, path := range l.paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, true, nil
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("stat output %q: %w", path, err)
		}
		if i == 0 || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	return oldest, false, nil
}

func newestModTime(l List) (time.Time, error) {
	var newest time.Time
	for _, path := range l.paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("stat input %q: %w", path, err)
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}
