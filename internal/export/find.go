package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// DefaultPattern matches selectors files anywhere below the search root.
const DefaultPattern = "**/" + selectors.DefaultFileName

// Find returns the files below root matching any of the doublestar patterns,
// sorted and without duplicates. Patterns are slash-separated and relative
// to root; no patterns means DefaultPattern.
func Find(root string, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	fsys := os.DirFS(root)

	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			out = append(out, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
