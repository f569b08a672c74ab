package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TranscriptExt is the extension chat exports are written with.
const TranscriptExt = ".txt"

// ExpandPaths expands file paths, directories and glob patterns into a
// deduplicated, sorted list of transcript files. A directory contributes the
// regular *.txt files directly inside it. Patterns that match nothing are returned
// as-is so the caller reports a file-not-found error for them.
func ExpandPaths(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(pattern, "*"+TranscriptExt))
			if err != nil {
				return nil, fmt.Errorf("listing directory %q: %w", pattern, err)
			}
			for _, m := range matches {
				if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
					add(m)
				}
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(result)
	return result, nil
}
