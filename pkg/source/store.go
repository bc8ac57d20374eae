package source

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	talerrors "github.com/vango-dev/tal/internal/errors"
)

// Store opens named sources. Names use forward slashes.
type Store interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirStore reads sources from a local directory.
type DirStore struct {
	fsys fs.FS
	dir  string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{fsys: os.DirFS(dir), dir: dir}
}

// Open opens name below the store directory. Names escaping it are not
// found.
func (s *DirStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fsys.Open(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(filepath.Join(s.dir, filepath.FromSlash(clean)), err)
		}
		return nil, err
	}
	return f, nil
}

func (s *DirStore) String() string { return s.dir }

func cleanName(name string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(name))[1:]
	if clean == "" || !fs.ValidPath(clean) {
		return "", notFound(name, fs.ErrInvalid)
	}
	return clean, nil
}

func notFound(name string, err error) error {
	return talerrors.New(talerrors.CodeSourceNotFound).
		WithDetail(name).
		Wrap(err)
}
