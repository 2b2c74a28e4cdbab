// Package artifact stores the outputs of pipeline steps.
package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("artifact not found")
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store keeps artifacts under slash separated keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// URI returns the location of the artifact stored under key.
	URI(key string) string
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(filepath.ToSlash(key), "/")
	if key == "" {
		return "", errors.Wrap(ErrInvalidKey, "empty key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", errors.Wrapf(ErrInvalidKey, "%q", key)
		}
	}

	return key, nil
}

// LocalStore keeps artifacts as files under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	err := os.MkdirAll(root, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create artifact directory %s", root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve artifact directory %s", root)
	}

	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes the artifact to a temporary file renamed once complete.
func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create directory for %s", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return errors.Wrapf(err, "unable to create temporary file for %s", key)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if err != nil {
		tmp.Close()

		return errors.Wrapf(err, "unable to write %s", key)
	}
	err = tmp.Close()
	if err != nil {
		return errors.Wrapf(err, "unable to close %s", key)
	}

	return errors.Wrapf(os.Rename(tmp.Name(), path), "unable to move %s in place", key)
}

func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", key)
	}

	return file, nil
}

func (s *LocalStore) URI(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(key)))
}

var _ Store = (*LocalStore)(nil)
