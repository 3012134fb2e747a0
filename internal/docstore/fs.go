package docstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FS reads documents from a local directory.
type FS struct {
	dir string
}

// NewFS creates an FS rooted at dir.
func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

func (s *FS) path(name string) string {
	return filepath.Join(s.dir, filepath.Clean("/"+name))
}

// Stat implements Source.
func (s *FS) Stat(_ context.Context, name string) (int64, error) {
	info, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, eris.Wrapf(ErrNotFound, "docstore: stat %s", name)
	}
	if err != nil {
		return 0, eris.Wrapf(err, "docstore: stat %s", name)
	}
	if info.IsDir() {
		return 0, eris.Errorf("docstore: %s is a directory", name)
	}
	return info.Size(), nil
}

// Read implements Source.
func (s *FS) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "docstore: read %s", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "docstore: read %s", name)
	}
	return data, nil
}
