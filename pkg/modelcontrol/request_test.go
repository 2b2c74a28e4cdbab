package modelcontrol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
)

func TestNewVersionRequestConfigNotSet(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	_, err := req.Config()
	assert.ErrorIs(t, err, modelcontrol.ErrConfigNotSet)
}

func TestNewVersionRequestSameVersion(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	err := req.Update(&modelcontrol.Config{Name: "clf", Version: "v1"}, modelcontrol.Requester{Source: "pipelineA", Name: "stepX"})
	require.NoError(t, err)
	err = req.Update(&modelcontrol.Config{Name: "clf", Version: "v1"}, modelcontrol.Requester{Source: "pipelineA", Name: "stepY"})
	require.NoError(t, err)

	cfg, err := req.Config()
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.Version)
	assert.Equal(t, []modelcontrol.Requester{
		{Source: "pipelineA", Name: "stepX"},
		{Source: "pipelineA", Name: "stepY"},
	}, req.Requesters)
}

func TestNewVersionRequestManyRequestersKeepOrder(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		version string
		total   int
	}{
		"default version": {version: "", total: 5},
		"named version":   {version: "release", total: 20},
		"single":          {version: "v3", total: 1},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req := &modelcontrol.NewVersionRequest{}
			want := make([]modelcontrol.Requester, tc.total)
			for i := 0; i < tc.total; i++ {
				want[i] = modelcontrol.Requester{Source: "pipe", Name: string(rune('a' + i))}
				err := req.Update(&modelcontrol.Config{Name: "clf", Version: tc.version}, want[i])
				require.NoError(t, err)
			}

			cfg, err := req.Config()
			require.NoError(t, err)
			assert.Equal(t, tc.version, cfg.Version)
			assert.Equal(t, want, req.Requesters)
		})
	}
}

func TestNewVersionRequestMismatch(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	first := modelcontrol.Requester{Source: "pipelineA", Name: "stepX"}
	err := req.Update(&modelcontrol.Config{Name: "clf", Version: "v1"}, first)
	require.NoError(t, err)

	err = req.Update(&modelcontrol.Config{Name: "clf", Version: "v2"}, modelcontrol.Requester{Source: "pipelineA", Name: "stepY"})
	require.ErrorIs(t, err, modelcontrol.ErrVersionMismatch)
	assert.Contains(t, err.Error(), `"clf"`)

	cfg, err := req.Config()
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.Version)
	assert.Equal(t, []modelcontrol.Requester{first}, req.Requesters)
}

func TestNewVersionRequestDefaultVersusNamed(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	require.NoError(t, req.Update(&modelcontrol.Config{Name: "clf"}, modelcontrol.Requester{Source: "p", Name: "a"}))
	err := req.Update(&modelcontrol.Config{Name: "clf", Version: "v1"}, modelcontrol.Requester{Source: "p", Name: "b"})
	assert.ErrorIs(t, err, modelcontrol.ErrVersionMismatch)
}

func TestNewVersionRequestNilConfig(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	err := req.Update(nil, modelcontrol.Requester{Source: "p", Name: "a"})
	require.ErrorIs(t, err, modelcontrol.ErrNilConfig)
	assert.Empty(t, req.Requesters)
}

func TestNewVersionRequestMerge(t *testing.T) {
	t.Parallel()

	req := &modelcontrol.NewVersionRequest{}
	first := &modelcontrol.Config{
		Name:                      "clf",
		Description:               "first",
		Tags:                      []string{"a", "b"},
		DeleteNewVersionOnFailure: true,
	}
	require.NoError(t, req.Update(first, modelcontrol.Requester{Source: "p", Name: "trainer"}))
	require.NoError(t, req.Update(&modelcontrol.Config{
		Name:             "clf",
		Description:      "second",
		License:          "MIT",
		Tags:             []string{"b", "c"},
		CreateNewVersion: true,
	}, modelcontrol.Requester{Source: "p", Name: "deployer"}))

	cfg, err := req.Config()
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Description)
	assert.Equal(t, "MIT", cfg.License)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.True(t, cfg.CreateNewVersion)
	assert.False(t, cfg.DeleteNewVersionOnFailure)

	// the canonical config is a copy
	assert.Equal(t, []string{"a", "b"}, first.Tags)
	assert.Empty(t, first.License)
}

func TestRequesterString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pipelineA::stepX", modelcontrol.Requester{Source: "pipelineA", Name: "stepX"}.String())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cfg     *modelcontrol.Config
		wantErr error
	}{
		"nil":            {cfg: nil, wantErr: modelcontrol.ErrNilConfig},
		"no name":        {cfg: &modelcontrol.Config{}, wantErr: modelcontrol.ErrInvalidConfig},
		"stage new":      {cfg: &modelcontrol.Config{Name: "m", Version: "production", CreateNewVersion: true}, wantErr: modelcontrol.ErrInvalidConfig},
		"latest new":     {cfg: &modelcontrol.Config{Name: "m", Version: "latest", CreateNewVersion: true}, wantErr: modelcontrol.ErrInvalidConfig},
		"stage resolve":  {cfg: &modelcontrol.Config{Name: "m", Version: "production"}},
		"named new":      {cfg: &modelcontrol.Config{Name: "m", Version: "v1", CreateNewVersion: true}},
		"default create": {cfg: &modelcontrol.Config{Name: "m", CreateNewVersion: true}},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	stage, err := modelcontrol.ParseStage("Production")
	require.NoError(t, err)
	assert.Equal(t, modelcontrol.StageProduction, stage)

	_, err = modelcontrol.ParseStage("prod")
	assert.ErrorIs(t, err, modelcontrol.ErrInvalidStage)
}
