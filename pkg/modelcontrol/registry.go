package modelcontrol

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Registry resolves and creates model versions on top of a Store.
type Registry struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		now:   time.Now,
	}
}

// Resolve creates a new version when the canonical config of req asks for
// one, and resolves an existing version otherwise.
func (r *Registry) Resolve(ctx context.Context, req *NewVersionRequest) (*Version, error) {
	cfg, err := req.Config()
	if err != nil {
		return nil, err
	}
	if cfg.CreateNewVersion {
		return r.CreateVersion(ctx, req)
	}

	return r.ResolveVersion(ctx, cfg)
}

// CreateVersion creates the version described by the canonical config of req,
// creating the model on first use.
func (r *Registry) CreateVersion(ctx context.Context, req *NewVersionRequest) (*Version, error) {
	cfg, err := req.Config()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	mdl, err := r.getOrCreateModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	versions, err := r.store.Versions(ctx, mdl.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list versions of %q", mdl.Name)
	}
	number := 1
	for _, v := range versions {
		if v.Number >= number {
			number = v.Number + 1
		}
	}

	name := cfg.Version
	if name == "" {
		name = strconv.Itoa(number)
	}

	version := &Version{
		ID:          uuid.New(),
		ModelID:     mdl.ID,
		ModelName:   mdl.Name,
		Name:        name,
		Number:      number,
		Description: cfg.VersionDescription,
		Stage:       StageNone,
		Requesters:  append([]Requester(nil), req.Requesters...),
		CreatedAt:   r.now(),
	}
	err = r.store.CreateVersion(ctx, version)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create version %q of %q", name, mdl.Name)
	}

	return version, nil
}

func (r *Registry) getOrCreateModel(ctx context.Context, cfg *Config) (*Model, error) {
	mdl, err := r.store.Model(ctx, cfg.Name)
	switch {
	case err == nil:
		updated := mdl.Clone()
		fillEmpty(&updated.License, cfg.License)
		fillEmpty(&updated.Description, cfg.Description)
		fillEmpty(&updated.Audience, cfg.Audience)
		fillEmpty(&updated.UseCases, cfg.UseCases)
		fillEmpty(&updated.Limitations, cfg.Limitations)
		fillEmpty(&updated.TradeOffs, cfg.TradeOffs)
		fillEmpty(&updated.Ethics, cfg.Ethics)
		updated.Tags = unionTags(updated.Tags, cfg.Tags)
		err = r.store.UpdateModel(ctx, updated)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to update model %q", cfg.Name)
		}

		return updated, nil
	case errors.Is(err, ErrModelNotFound):
		mdl = &Model{
			ID:          uuid.New(),
			Name:        cfg.Name,
			License:     cfg.License,
			Description: cfg.Description,
			Audience:    cfg.Audience,
			UseCases:    cfg.UseCases,
			Limitations: cfg.Limitations,
			TradeOffs:   cfg.TradeOffs,
			Ethics:      cfg.Ethics,
			Tags:        append([]string(nil), cfg.Tags...),
			CreatedAt:   r.now(),
		}
		err = r.store.CreateModel(ctx, mdl)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create model %q", cfg.Name)
		}

		return mdl, nil
	default:
		return nil, errors.Wrapf(err, "unable to get model %q", cfg.Name)
	}
}

// ResolveVersion finds the existing version cfg points at.
//
// An empty version or "latest" resolves to the highest version number, a stage
// name to the version holding that stage, a number to the version with that
// number, and anything else to the version with that name.
func (r *Registry) ResolveVersion(ctx context.Context, cfg *Config) (*Version, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	versions, err := r.store.Versions(ctx, cfg.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list versions of %q", cfg.Name)
	}

	want := strings.TrimSpace(cfg.Version)
	var match func(v *Version) bool
	switch stage, stageErr := ParseStage(want); {
	case want == "" || strings.EqualFold(want, LatestVersion):
		if len(versions) == 0 {
			break
		}
		latest := versions[0]
		for _, v := range versions[1:] {
			if v.Number > latest.Number {
				latest = v
			}
		}

		return latest, nil
	case stageErr == nil:
		match = func(v *Version) bool { return v.Stage == stage }
	default:
		number, convErr := strconv.Atoi(want)
		match = func(v *Version) bool {
			return v.Name == want || (convErr == nil && v.Number == number)
		}
	}

	for _, v := range versions {
		if match != nil && match(v) {
			return v, nil
		}
	}

	return nil, errors.Wrapf(ErrVersionNotFound, "model %q, version %q", cfg.Name, want)
}

// LinkArtifact records uri as the artifact called name on version.
func (r *Registry) LinkArtifact(ctx context.Context, version *Version, name, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.version(ctx, version.ModelName, version.Name)
	if err != nil {
		return err
	}
	if current.Artifacts == nil {
		current.Artifacts = make(map[string]string)
	}
	current.Artifacts[name] = uri

	err = r.store.UpdateVersion(ctx, current)
	if err != nil {
		return errors.Wrapf(err, "unable to link artifact %q", name)
	}

	return nil
}

// SetStage moves a version to stage. Promoting a version to staging or
// production archives the version that held the stage before.
func (r *Registry) SetStage(ctx context.Context, modelName, versionName string, stage Stage) (*Version, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions, err := r.store.Versions(ctx, modelName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list versions of %q", modelName)
	}

	var target *Version
	for _, v := range versions {
		if v.Name == versionName {
			target = v

			break
		}
	}
	if target == nil {
		return nil, errors.Wrapf(ErrVersionNotFound, "model %q, version %q", modelName, versionName)
	}

	if stage == StageStaging || stage == StageProduction {
		for _, v := range versions {
			if v == target || v.Stage != stage {
				continue
			}
			v.Stage = StageArchived
			err = r.store.UpdateVersion(ctx, v)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to archive version %q", v.Name)
			}
		}
	}

	target.Stage = stage
	err = r.store.UpdateVersion(ctx, target)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to set stage of version %q", versionName)
	}

	return target, nil
}

// DeleteVersion removes a version.
func (r *Registry) DeleteVersion(ctx context.Context, modelName, versionName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.DeleteVersion(ctx, modelName, versionName)
}

// Versions lists the versions of a model ordered by number.
func (r *Registry) Versions(ctx context.Context, modelName string) ([]*Version, error) {
	return r.store.Versions(ctx, modelName)
}

func (r *Registry) version(ctx context.Context, modelName, versionName string) (*Version, error) {
	versions, err := r.store.Versions(ctx, modelName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list versions of %q", modelName)
	}
	for _, v := range versions {
		if v.Name == versionName {
			return v, nil
		}
	}

	return nil, errors.Wrapf(ErrVersionNotFound, "model %q, version %q", modelName, versionName)
}
