package artifact

import (
	"bytes"
	"context"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/config"
	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
)

// Manager saves and loads values through the materializer registry.
type Manager struct {
	store         Store
	materializers *materializer.Registry
	logger        *logging.Logger
}

func NewManager(store Store, materializers *materializer.Registry, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Manager{store: store, materializers: materializers, logger: logger}
}

// Key returns the key of an artifact produced for a model version.
func Key(modelName, versionName, artifactName string) string {
	return path.Join(modelName, versionName, artifactName)
}

// Save materializes v under key and returns its URI. The materializer name
// is stored next to it so that Load picks the same one.
func (m *Manager) Save(ctx context.Context, key string, v any) (string, error) {
	mat, err := m.materializers.For(v)
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	err = mat.Save(ctx, buf, v)
	if err != nil {
		return "", errors.Wrapf(err, "unable to materialize %s with %s", key, mat.Name())
	}
	size := int64(buf.Len())

	err = m.store.Put(ctx, key, buf, size)
	if err != nil {
		return "", err
	}
	err = m.store.Put(ctx, key+".materializer", bytes.NewBufferString(mat.Name()), int64(len(mat.Name())))
	if err != nil {
		return "", err
	}

	uri := m.store.URI(key)
	m.logger.Info("artifact saved", "uri", uri, "materializer", mat.Name(), "size", humanize.Bytes(uint64(size)))

	return uri, nil
}

// Load decodes the artifact under key into target.
func (m *Manager) Load(ctx context.Context, key string, target any) error {
	nameReader, err := m.store.Get(ctx, key+".materializer")
	if err != nil {
		return err
	}
	name := &bytes.Buffer{}
	_, err = name.ReadFrom(nameReader)
	nameReader.Close()
	if err != nil {
		return errors.Wrapf(err, "unable to read materializer of %s", key)
	}

	mat, err := m.materializers.ByName(name.String())
	if err != nil {
		return err
	}

	r, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	err = mat.Load(ctx, r, target)
	if err != nil {
		return errors.Wrapf(err, "unable to load %s with %s", key, mat.Name())
	}
	m.logger.Debug("artifact loaded", "uri", m.store.URI(key), "materializer", mat.Name())

	return nil
}

// NewStore builds the store selected by cfg.
func NewStore(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	switch cfg.Kind {
	case config.ArtifactS3:
		client, err := NewS3Client(cfg.S3)
		if err != nil {
			return nil, err
		}

		store, err := NewS3Store(ctx, client, cfg.S3.Bucket, cfg.S3.Region)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.ArtifactLocal, "":
		store, err := NewLocalStore(cfg.Path)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, errors.Errorf("unknown artifact store kind %q", cfg.Kind)
	}
}
