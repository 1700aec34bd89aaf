// Package export reads and writes selectors.yml files on disk.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dohr-michael/dbtsel/internal/criteria"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// WriteFile atomically writes selectors to path using a temp file + rename.
// Parent directories are created. It returns the number of bytes written.
func WriteFile(path string, sel []selectors.Selector, indent int) (int, error) {
	var buf bytes.Buffer
	if err := selectors.Encode(&buf, sel, indent); err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("write selectors tmp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write selectors tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write selectors tmp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("chmod selectors tmp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename selectors: %w", err)
	}
	return buf.Len(), nil
}

// ReadFile parses the selectors file at path. A missing file holds no
// selectors.
func ReadFile(path string, b *criteria.Builder) ([]selectors.Selector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read selectors: %w", err)
	}
	sel, err := selectors.Parse(data, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sel, nil
}
