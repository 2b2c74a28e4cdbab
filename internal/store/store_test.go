package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
)

func testModel(name string) *modelcontrol.Model {
	return &modelcontrol.Model{
		ID:        uuid.New(),
		Name:      name,
		Tags:      []string{"t"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testVersion(mdl *modelcontrol.Model, number int) *modelcontrol.Version {
	return &modelcontrol.Version{
		ID:        uuid.New(),
		ModelID:   mdl.ID,
		ModelName: mdl.Name,
		Name:      "v" + string(rune('0'+number)),
		Number:    number,
		Stage:     modelcontrol.StageNone,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMemoryStoreModels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Model(ctx, "clf")
	require.ErrorIs(t, err, modelcontrol.ErrModelNotFound)
	require.ErrorIs(t, s.UpdateModel(ctx, testModel("clf")), modelcontrol.ErrModelNotFound)

	mdl := testModel("clf")
	require.NoError(t, s.CreateModel(ctx, mdl))
	require.ErrorIs(t, s.CreateModel(ctx, mdl), modelcontrol.ErrModelExists)

	got, err := s.Model(ctx, "clf")
	require.NoError(t, err)
	assert.Equal(t, mdl, got)

	// stored records are copies
	got.Tags[0] = "changed"
	again, err := s.Model(ctx, "clf")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, again.Tags)
}

func TestMemoryStoreVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	mdl := testModel("clf")

	require.ErrorIs(t, s.CreateVersion(ctx, testVersion(mdl, 1)), modelcontrol.ErrModelNotFound)
	require.NoError(t, s.CreateModel(ctx, mdl))

	for _, n := range []int{3, 1, 2} {
		require.NoError(t, s.CreateVersion(ctx, testVersion(mdl, n)))
	}
	require.ErrorIs(t, s.CreateVersion(ctx, testVersion(mdl, 1)), modelcontrol.ErrVersionExists)

	versions, err := s.Versions(ctx, "clf")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
	}

	v := versions[0]
	v.Stage = modelcontrol.StageProduction
	require.NoError(t, s.UpdateVersion(ctx, v))
	versions, err = s.Versions(ctx, "clf")
	require.NoError(t, err)
	assert.Equal(t, modelcontrol.StageProduction, versions[0].Stage)

	require.NoError(t, s.DeleteVersion(ctx, "clf", v.Name))
	require.ErrorIs(t, s.DeleteVersion(ctx, "clf", v.Name), modelcontrol.ErrVersionNotFound)
	require.ErrorIs(t, s.UpdateVersion(ctx, v), modelcontrol.ErrVersionNotFound)

	empty, err := s.Versions(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreConcurrentCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	mdl := testModel("clf")
	require.NoError(t, s.CreateModel(ctx, mdl))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateVersion(ctx, testVersion(mdl, 1))
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, modelcontrol.ErrVersionExists)
	}
	assert.Equal(t, 1, success)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "registry.yaml")

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	mdl := testModel("clf")
	require.NoError(t, s.CreateModel(ctx, mdl))
	v := testVersion(mdl, 1)
	v.Requesters = []modelcontrol.Requester{{Source: "pipe", Name: "trainer"}}
	v.Artifacts = map[string]string{"model": "file:///m.json"}
	require.NoError(t, s.CreateVersion(ctx, v))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	gotModel, err := reopened.Model(ctx, "clf")
	require.NoError(t, err)
	assert.Equal(t, mdl.ID, gotModel.ID)
	assert.True(t, mdl.CreatedAt.Equal(gotModel.CreatedAt))

	versions, err := reopened.Versions(ctx, "clf")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, v.ID, versions[0].ID)
	assert.Equal(t, v.Requesters, versions[0].Requesters)
	assert.Equal(t, v.Artifacts, versions[0].Artifacts)

	require.NoError(t, reopened.DeleteVersion(ctx, "clf", v.Name))
	again, err := OpenFileStore(path)
	require.NoError(t, err)
	versions, err = again.Versions(ctx, "clf")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestFileStoreFailedMutationDoesNotWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	err = s.CreateVersion(ctx, testVersion(testModel("clf"), 1))
	require.ErrorIs(t, err, modelcontrol.ErrModelNotFound)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStoreFailedFlushRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	mdl := testModel("clf")
	require.NoError(t, s.CreateModel(ctx, mdl))

	// a directory in place of the file makes the rename fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	err = s.CreateVersion(ctx, testVersion(mdl, 1))
	require.Error(t, err)

	versions, err := s.Versions(ctx, "clf")
	require.NoError(t, err)
	assert.Empty(t, versions)
	_, err = s.Model(ctx, "clf")
	require.NoError(t, err)
}

func TestOpenFileStoreInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [: bad"), 0o600))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}
