package engine

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

func findExecutable(fsys afero.Fs, file string) error {
	d, err := fsys.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches the directories of path for an executable named file.
// If file contains a slash it is tried directly. An empty element of path
// means the current directory.
func LookPath(fsys afero.Fs, path, file string) (string, error) {
	if strings.Contains(file, "/") {
		if err := findExecutable(fsys, file); err != nil {
			return "", err
		}
		return file, nil
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(fsys, candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}
