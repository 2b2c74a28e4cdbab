package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
)

// FileStore is a MemoryStore persisted to a YAML file after every change.
type FileStore struct {
	*MemoryStore
	path string
	// mu serialises mutation + flush. A failed flush rolls memory back to the
	// content of the file.
	mu sync.Mutex
}

// OpenFileStore loads the store at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs, nil
	case err != nil:
		return nil, errors.Wrapf(err, "unable to read registry file %s", path)
	}

	snap := &snapshot{}
	err = yaml.Unmarshal(data, snap)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode registry file %s", path)
	}
	fs.restore(snap)

	return fs, nil
}

func (s *FileStore) CreateModel(ctx context.Context, mdl *modelcontrol.Model) error {
	return s.mutate(func() error { return s.MemoryStore.CreateModel(ctx, mdl) })
}

func (s *FileStore) UpdateModel(ctx context.Context, mdl *modelcontrol.Model) error {
	return s.mutate(func() error { return s.MemoryStore.UpdateModel(ctx, mdl) })
}

func (s *FileStore) CreateVersion(ctx context.Context, version *modelcontrol.Version) error {
	return s.mutate(func() error { return s.MemoryStore.CreateVersion(ctx, version) })
}

func (s *FileStore) UpdateVersion(ctx context.Context, version *modelcontrol.Version) error {
	return s.mutate(func() error { return s.MemoryStore.UpdateVersion(ctx, version) })
}

func (s *FileStore) DeleteVersion(ctx context.Context, modelName, versionName string) error {
	return s.mutate(func() error { return s.MemoryStore.DeleteVersion(ctx, modelName, versionName) })
}

func (s *FileStore) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshot()
	err := fn()
	if err != nil {
		return err
	}

	err = s.flush()
	if err != nil {
		s.restore(before)

		return err
	}

	return nil
}

// flush writes the snapshot to a temporary file and renames it over path.
func (s *FileStore) flush() error {
	data, err := yaml.Marshal(s.snapshot())
	if err != nil {
		return errors.Wrap(err, "unable to encode registry")
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary registry file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return errors.Wrap(err, "unable to write registry")
	}
	err = tmp.Close()
	if err != nil {
		return errors.Wrap(err, "unable to close temporary registry file")
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return errors.Wrapf(err, "unable to replace registry file %s", s.path)
	}

	return nil
}

var _ modelcontrol.Store = (*FileStore)(nil)
