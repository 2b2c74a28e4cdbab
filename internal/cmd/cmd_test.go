package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/internal/example"
	"github.com/askiada/go-mlpipeline/internal/store"
	"github.com/askiada/go-mlpipeline/pkg/deployer"
	"github.com/askiada/go-mlpipeline/pkg/integration"
)

func writeConfig(t *testing.T, dir, level string) string {
	t.Helper()

	content := fmt.Sprintf(`logging:
  level: %s
  format: json
  file: %s
artifacts:
  kind: local
  path: %s
registry:
  path: %s
serving:
  addr: 127.0.0.1:0
integrations:
  - sklearn
`, level, filepath.Join(dir, "run.log"), filepath.Join(dir, "artifacts"), filepath.Join(dir, "registry.yaml"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd(integration.AllInstalled{})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()

	return buf.String(), err
}

func TestRunDeploys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := writeConfig(t, dir, "debug")
	graphFile := filepath.Join(dir, "pipeline.dot")

	out, err := executeCommand(t, "--config", cfgFile, "--graph", graphFile, "--measure")
	require.NoError(t, err)
	assert.Contains(t, out, "running locally")
	assert.Contains(t, out, "/v1/models/"+example.ModelName+"/predict")
	assert.Contains(t, out, "--serve")
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "trainer")

	graph, err := os.ReadFile(graphFile)
	require.NoError(t, err)
	assert.Contains(t, string(graph), "digraph")
	assert.Contains(t, string(graph), "model_deployer_step")

	logs, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logs), "integration activated")
	assert.Contains(t, string(logs), "model deployed")

	// the registry outlives the run
	fs, err := store.OpenFileStore(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)
	versions, err := fs.Versions(t.Context(), example.ModelName)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Contains(t, versions[0].Artifacts, example.ModelArtifact)

	_, err = executeCommand(t, "--config", cfgFile)
	require.NoError(t, err)
	reopened, err := store.OpenFileStore(filepath.Join(dir, "registry.yaml"))
	require.NoError(t, err)
	versions, err = reopened.Versions(t.Context(), example.ModelName)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestRunBelowMinAccuracy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := executeCommand(t, "--config", writeConfig(t, dir, "info"), "--min-accuracy", "1.01")
	require.NoError(t, err)
	assert.Contains(t, out, "No prediction server is currently running")
}

func TestRunInvalidTrainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := executeCommand(t, "--config", writeConfig(t, dir, "info"), "--epochs", "0")
	require.ErrorIs(t, err, example.ErrInvalidTrainerConfig)
	assert.Contains(t, err.Error(), "pipeline failed")
}

func TestRunInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := executeCommand(t, "--config", writeConfig(t, dir, "loud"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestRunMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPipelineConfigFromFlags(t *testing.T) {
	t.Parallel()

	opts := &options{batchSize: 8, epochs: 5, lr: 0.1, momentum: 0.9, minAccuracy: 0.7}
	cfg := opts.pipelineConfig()
	assert.Equal(t, 8, cfg.Loader.TrainBatchSize)
	assert.Equal(t, 8, cfg.Loader.TestBatchSize)
	assert.Equal(t, example.TrainerConfig{Epochs: 5, LR: 0.1, Momentum: 0.9}, cfg.Trainer)
	assert.InDelta(t, 0.7, cfg.Trigger.MinAccuracy, 1e-9)
}

func TestFlagDefaults(t *testing.T) {
	t.Parallel()

	flags := newRootCmd(integration.AllInstalled{}).Flags()
	tcs := map[string]string{
		"batch-size":   "4",
		"epochs":       "3",
		"lr":           "0.01",
		"momentum":     "0.5",
		"min-accuracy": "0.8",
		"serve":        "false",
	}
	for name, expected := range tcs {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, expected, f.DefValue, name)
	}
}

func TestStatusMessage(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tcs := map[string]struct {
		services []*deployer.Service
		serving  bool
		contains []string
	}{
		"no service": {
			contains: []string{"No prediction server is currently running"},
		},
		"running": {
			services: []*deployer.Service{{
				UUID:          id,
				PredictionURL: "http://127.0.0.1:8080/v1/models/m/predict",
				Hostname:      "host",
				Status:        deployer.Status{State: deployer.StateRunning},
			}},
			serving:  true,
			contains: []string{"http://127.0.0.1:8080/v1/models/m/predict", "With the hostname: host", "Ctrl+C", id.String()},
		},
		"failed": {
			services: []*deployer.Service{{
				UUID:   id,
				Status: deployer.Status{State: deployer.StateError, LastError: "boom"},
			}},
			contains: []string{"failed state", "Last state: 'error'", "Last error: 'boom'"},
		},
		"pending": {
			services: []*deployer.Service{{UUID: id, Status: deployer.Status{State: deployer.StatePending}}},
			contains: []string{id.String() + " is pending"},
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			msg := statusMessage(tc.services, tc.serving)
			for _, s := range tc.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}
