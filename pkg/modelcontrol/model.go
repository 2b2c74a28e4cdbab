package modelcontrol

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Model is a named model tracked by the registry.
type Model struct {
	ID          uuid.UUID `yaml:"id"`
	Name        string    `yaml:"name"`
	License     string    `yaml:"license,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Audience    string    `yaml:"audience,omitempty"`
	UseCases    string    `yaml:"use_cases,omitempty"`
	Limitations string    `yaml:"limitations,omitempty"`
	TradeOffs   string    `yaml:"trade_offs,omitempty"`
	Ethics      string    `yaml:"ethics,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	cp := *m
	if m.Tags != nil {
		cp.Tags = append([]string(nil), m.Tags...)
	}

	return &cp
}

// Version is one version of a model.
type Version struct {
	ID          uuid.UUID         `yaml:"id"`
	ModelID     uuid.UUID         `yaml:"model_id"`
	ModelName   string            `yaml:"model_name"`
	Name        string            `yaml:"name"`
	Number      int               `yaml:"number"`
	Description string            `yaml:"description,omitempty"`
	Stage       Stage             `yaml:"stage"`
	Requesters  []Requester       `yaml:"requesters,omitempty"`
	Artifacts   map[string]string `yaml:"artifacts,omitempty"`
	CreatedAt   time.Time         `yaml:"created_at"`
}

// Clone returns a deep copy of the version.
func (v *Version) Clone() *Version {
	cp := *v
	if v.Requesters != nil {
		cp.Requesters = append([]Requester(nil), v.Requesters...)
	}
	if v.Artifacts != nil {
		cp.Artifacts = make(map[string]string, len(v.Artifacts))
		for k, uri := range v.Artifacts {
			cp.Artifacts[k] = uri
		}
	}

	return &cp
}

// Store persists models and versions. Implementations return copies, so
// callers can never alias stored records.
type Store interface {
	Model(ctx context.Context, name string) (*Model, error)
	CreateModel(ctx context.Context, model *Model) error
	UpdateModel(ctx context.Context, model *Model) error
	// Versions lists the versions of a model ordered by number.
	Versions(ctx context.Context, modelName string) ([]*Version, error)
	CreateVersion(ctx context.Context, version *Version) error
	UpdateVersion(ctx context.Context, version *Version) error
	DeleteVersion(ctx context.Context, modelName, versionName string) error
}
