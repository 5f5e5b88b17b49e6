// Package demo implements the hashing pipeline used to exercise a full
// daemon end to end: directories are created, a file is downloaded (or
// mocked), hashed line by line, its first letters extracted, and the
// source removed again, reseeded every few minutes. Grounded on
// original_source/edera/demo/daemon/__main__.py and beans/fs.py.
package demo

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/edera-run/workflowd/internal/box"
)

// FileSystem resolves demo paths under Root, transparently rooting them
// under the active TaskSegregator color (if any) so differently-colored
// test projections of the same task never touch each other's files.
// Grounded on beans/fs.py's FileSystem bean, recast from the source's
// per-color Beanbag singleton (dropped per DESIGN.md Recast Decision 3)
// into an explicit color-aware path resolver.
type FileSystem struct {
	Root     string
	ColorBox box.Box // optional; nil means "never colored"
}

func (fs *FileSystem) resolve(path string) string {
	root := fs.Root
	if fs.ColorBox != nil {
		if color, ok := fs.ColorBox.Get().(string); ok && color != "" {
			root = filepath.Join(root, color)
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Exists reports whether path exists under the resolved root.
func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(fs.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnsureDir creates path (and its parents) under the resolved root.
func (fs *FileSystem) EnsureDir(path string) error {
	return os.MkdirAll(fs.resolve(path), 0o755)
}

// Remove deletes path under the resolved root, succeeding if it is
// already absent.
func (fs *FileSystem) Remove(path string) error {
	err := os.Remove(fs.resolve(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadLines returns path's contents split into lines, under the
// resolved root.
func (fs *FileSystem) ReadLines(path string) ([]string, error) {
	f, err := os.Open(fs.resolve(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// WriteLines writes lines to path, one per line, under the resolved
// root, creating the parent directory if needed.
func (fs *FileSystem) WriteLines(path string, lines []string) error {
	full := fs.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
