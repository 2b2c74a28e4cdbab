package integration_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/pkg/integration"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
)

func newRegistry(t *testing.T, checker integration.RequirementChecker) *integration.Registry {
	t.Helper()

	return integration.NewRegistry(checker, materializer.NewRegistry(nil), nil)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, integration.AllInstalled{})
	require.NoError(t, registry.Register(&integration.Integration{Name: "torch", Requirements: []string{"torch"}}))
	require.NoError(t, registry.Register(&integration.Integration{Name: "mlflow"}))

	assert.ErrorIs(t, registry.Register(&integration.Integration{Name: "Torch"}), integration.ErrIntegrationExists)
	assert.ErrorIs(t, registry.Register(&integration.Integration{}), integration.ErrInvalidIntegration)
	assert.ErrorIs(t, registry.Register(nil), integration.ErrInvalidIntegration)

	assert.Equal(t, []string{"mlflow", "torch"}, registry.List())

	got, err := registry.Get("TORCH")
	require.NoError(t, err)
	assert.Equal(t, "torch", got.Name)

	_, err = registry.Get("sklearn")
	assert.ErrorIs(t, err, integration.ErrUnknownIntegration)
}

func TestActivateOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	registry := newRegistry(t, integration.AllInstalled{})
	require.NoError(t, registry.Register(&integration.Integration{
		Name: "torch",
		Activate: func(*materializer.Registry) error {
			calls++

			return nil
		},
	}))

	assert.False(t, registry.IsActive("torch"))
	require.NoError(t, registry.Activate(context.Background(), "torch"))
	require.NoError(t, registry.Activate(context.Background(), "torch"))
	assert.Equal(t, 1, calls)
	assert.True(t, registry.IsActive("torch"))

	assert.ErrorIs(t, registry.Activate(context.Background(), "unknown"), integration.ErrUnknownIntegration)
}

func TestActivateHookError(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, integration.AllInstalled{})
	require.NoError(t, registry.Register(&integration.Integration{
		Name:     "broken",
		Activate: func(*materializer.Registry) error { return assert.AnError },
	}))

	assert.ErrorIs(t, registry.Activate(context.Background(), "broken"), assert.AnError)
	assert.False(t, registry.IsActive("broken"))
}

func TestCheckInstallation(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, integration.StaticChecker{"numpy": true})
	require.NoError(t, registry.Register(&integration.Integration{
		Name:         "vision",
		Requirements: []string{"numpy>=1.20", "opencv-python"},
	}))

	missing, err := registry.CheckInstallation(context.Background(), "vision")
	require.NoError(t, err)
	assert.Equal(t, []string{"opencv-python"}, missing)
}

func TestRequirements(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t, integration.AllInstalled{})
	require.NoError(t, registry.Register(&integration.Integration{Name: "a", Requirements: []string{"numpy", "pandas"}}))
	require.NoError(t, registry.Register(&integration.Integration{Name: "b", Requirements: []string{"pandas", "torch"}}))

	got, err := registry.Requirements("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"numpy", "pandas", "torch"}, got)

	_, err = registry.Requirements("c")
	assert.ErrorIs(t, err, integration.ErrUnknownIntegration)
}

func TestPipCheckerMissingInterpreter(t *testing.T) {
	t.Parallel()

	_, err := integration.PipChecker{Python: "python-does-not-exist"}.Installed(context.Background(), "numpy")
	assert.ErrorIs(t, err, exec.ErrNotFound)
}
