// Package store holds the modelcontrol.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
)

// MemoryStore keeps models and versions in memory.
type MemoryStore struct {
	lock   sync.RWMutex
	models map[string]*modelcontrol.Model
	// versions maps a model name to its versions keyed by version name.
	versions map[string]map[string]*modelcontrol.Version
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:   make(map[string]*modelcontrol.Model),
		versions: make(map[string]map[string]*modelcontrol.Version),
	}
}

func (s *MemoryStore) Model(_ context.Context, name string) (*modelcontrol.Model, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	mdl, ok := s.models[name]
	if !ok {
		return nil, errors.Wrapf(modelcontrol.ErrModelNotFound, "%q", name)
	}

	return mdl.Clone(), nil
}

func (s *MemoryStore) CreateModel(_ context.Context, mdl *modelcontrol.Model) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.models[mdl.Name]; ok {
		return errors.Wrapf(modelcontrol.ErrModelExists, "%q", mdl.Name)
	}
	s.models[mdl.Name] = mdl.Clone()

	return nil
}

func (s *MemoryStore) UpdateModel(_ context.Context, mdl *modelcontrol.Model) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.models[mdl.Name]; !ok {
		return errors.Wrapf(modelcontrol.ErrModelNotFound, "%q", mdl.Name)
	}
	s.models[mdl.Name] = mdl.Clone()

	return nil
}

func (s *MemoryStore) Versions(_ context.Context, modelName string) ([]*modelcontrol.Version, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]*modelcontrol.Version, 0, len(s.versions[modelName]))
	for _, v := range s.versions[modelName] {
		res = append(res, v.Clone())
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Number < res[j].Number
	})

	return res, nil
}

func (s *MemoryStore) CreateVersion(_ context.Context, version *modelcontrol.Version) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.models[version.ModelName]; !ok {
		return errors.Wrapf(modelcontrol.ErrModelNotFound, "%q", version.ModelName)
	}
	if _, ok := s.versions[version.ModelName]; !ok {
		s.versions[version.ModelName] = make(map[string]*modelcontrol.Version)
	}
	if _, ok := s.versions[version.ModelName][version.Name]; ok {
		return errors.Wrapf(modelcontrol.ErrVersionExists, "model %q, version %q", version.ModelName, version.Name)
	}
	s.versions[version.ModelName][version.Name] = version.Clone()

	return nil
}

func (s *MemoryStore) UpdateVersion(_ context.Context, version *modelcontrol.Version) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.versions[version.ModelName][version.Name]; !ok {
		return errors.Wrapf(modelcontrol.ErrVersionNotFound, "model %q, version %q", version.ModelName, version.Name)
	}
	s.versions[version.ModelName][version.Name] = version.Clone()

	return nil
}

func (s *MemoryStore) DeleteVersion(_ context.Context, modelName, versionName string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.versions[modelName][versionName]; !ok {
		return errors.Wrapf(modelcontrol.ErrVersionNotFound, "model %q, version %q", modelName, versionName)
	}
	delete(s.versions[modelName], versionName)

	return nil
}

// snapshot is the serialised form of a MemoryStore.
type snapshot struct {
	Models   []*modelcontrol.Model   `yaml:"models"`
	Versions []*modelcontrol.Version `yaml:"versions"`
}

func (s *MemoryStore) snapshot() *snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	snap := &snapshot{}
	for _, mdl := range s.models {
		snap.Models = append(snap.Models, mdl.Clone())
	}
	for _, versions := range s.versions {
		for _, v := range versions {
			snap.Versions = append(snap.Versions, v.Clone())
		}
	}
	sort.Slice(snap.Models, func(i, j int) bool {
		return snap.Models[i].Name < snap.Models[j].Name
	})
	sort.Slice(snap.Versions, func(i, j int) bool {
		if snap.Versions[i].ModelName != snap.Versions[j].ModelName {
			return snap.Versions[i].ModelName < snap.Versions[j].ModelName
		}

		return snap.Versions[i].Number < snap.Versions[j].Number
	})

	return snap
}

// restore replaces the content of the store with snap.
func (s *MemoryStore) restore(snap *snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.models = make(map[string]*modelcontrol.Model, len(snap.Models))
	s.versions = make(map[string]map[string]*modelcontrol.Version)

	for _, mdl := range snap.Models {
		s.models[mdl.Name] = mdl
	}
	for _, v := range snap.Versions {
		if _, ok := s.versions[v.ModelName]; !ok {
			s.versions[v.ModelName] = make(map[string]*modelcontrol.Version)
		}
		s.versions[v.ModelName][v.Name] = v
	}
}

var _ modelcontrol.Store = (*MemoryStore)(nil)
