package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/lesson"
)

var ErrInvalidPath = errors.New("invalid file path")

// localStore keeps files on the local disk under a root directory.
// It is the development fallback when no object store is configured.
type localStore struct {
	root string
}

var _ lesson.FileStore = (*localStore)(nil)

func NewLocalStore(root string) (lesson.FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media directory")
	}
	return &localStore{root: root}, nil
}

// resolve keeps every path inside the root directory.
func (s *localStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *localStore) Save(_ context.Context, path string, content io.Reader, _ int64, _ string) error {
	fp, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return errors.Wrap(err, "creating file directory")
	}
	f, err := os.Create(fp)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer f.Close()
	if _, err = io.Copy(f, content); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

func (s *localStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	fp, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *localStore) Remove(_ context.Context, path string) error {
	fp, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
