package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrSourceNotFound is returned when a source path matches no CSV file.
var ErrSourceNotFound = errors.New("source not found")

// ResolveSources expands each source into CSV file paths. A source may be
// a file, a directory (its *.csv entries, not recursive) or a glob.
// Duplicates are dropped; order is stable.
func ResolveSources(sources ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, src := range sources {
		info, err := os.Stat(src)
		switch {
		case err == nil && info.IsDir():
			matches, err := filepath.Glob(filepath.Join(src, "*.csv"))
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", src, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
		case err == nil:
			add(src)
		case strings.ContainsAny(src, "*?["):
			matches, err := filepath.Glob(src)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %s: %w", src, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		default:
			return nil, fmt.Errorf("failed to stat %s: %w", src, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no CSV files in %s", ErrSourceNotFound, strings.Join(sources, ", "))
	}
	return files, nil
}
