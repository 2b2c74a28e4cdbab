package artifact

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/internal/config"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
)

type weights struct {
	Coef      []float64 `yaml:"coef"`
	Intercept float64   `yaml:"intercept"`
}

func TestCleanKey(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		key      string
		expected string
		err      bool
	}{
		"simple":         {key: "model/1/weights", expected: "model/1/weights"},
		"leading slash":  {key: "/model/weights/", expected: "model/weights"},
		"empty":          {key: "", err: true},
		"parent":         {key: "model/../../etc", err: true},
		"current":        {key: "model/./weights", err: true},
		"double slashes": {key: "model//weights", err: true},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := cleanKey(tc.key)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidKey)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLocalStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "classifier/1/weights", strings.NewReader("abc"), 3))
	r, err := store.Get(ctx, "classifier/1/weights")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "abc", string(data))

	require.NoError(t, store.Put(ctx, "classifier/1/weights", strings.NewReader("abcd"), 4))
	r, err = store.Get(ctx, "classifier/1/weights")
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "abcd", string(data))

	_, err = store.Get(ctx, "classifier/2/weights")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Put(ctx, "../escape", strings.NewReader(""), 0), ErrInvalidKey)

	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "classifier", "1", "weights")),
		store.URI("classifier/1/weights"))
}

func TestManager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	manager := NewManager(store, materializer.NewRegistry(materializer.YAMLMaterializer{}), nil)

	key := Key("classifier", "3", "weights")
	assert.Equal(t, "classifier/3/weights", key)

	uri, err := manager.Save(ctx, key, weights{Coef: []float64{1, 2}, Intercept: -0.5})
	require.NoError(t, err)
	assert.Equal(t, store.URI(key), uri)

	var got weights
	require.NoError(t, manager.Load(ctx, key, &got))
	assert.Equal(t, weights{Coef: []float64{1, 2}, Intercept: -0.5}, got)

	assert.ErrorIs(t, manager.Load(ctx, Key("classifier", "4", "weights"), &got), ErrNotFound)
}

func TestManagerUnknownType(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	manager := NewManager(store, materializer.NewRegistry(nil), nil)

	_, err = manager.Save(context.Background(), "key", weights{})
	assert.ErrorIs(t, err, materializer.ErrNoMaterializer)
}

func TestS3StoreWithoutNetwork(t *testing.T) {
	t.Parallel()

	client, err := NewS3Client(config.S3Config{Endpoint: "127.0.0.1:9000", AccessKey: "minio", SecretKey: "minio123"})
	require.NoError(t, err)
	store := &S3Store{client: client, bucket: "models"}

	assert.Equal(t, "s3://models/classifier/1/weights", store.URI("classifier/1/weights"))
	assert.ErrorIs(t, store.Put(context.Background(), "", bytes.NewReader(nil), 0), ErrInvalidKey)
	_, err = store.Get(context.Background(), "../weights")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	store, err := NewStore(context.Background(), config.ArtifactConfig{Kind: config.ArtifactLocal, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = NewStore(context.Background(), config.ArtifactConfig{Kind: "gcs"})
	assert.Error(t, err)
}
