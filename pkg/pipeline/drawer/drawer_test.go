package drawer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
	"github.com/askiada/go-mlpipeline/pkg/pipeline"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/drawer"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/measure"
)

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "pipeline.dot")
	msr := measure.NewDefaultMeasure()
	pipe, err := pipeline.New(context.Background(),
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(fileName), msr),
	)
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "loader", func(ctx context.Context, rootChan chan<- int) error {
		for i := range 3 {
			rootChan <- i
		}

		return nil
	})
	require.NoError(t, err)
	trained, err := pipeline.AddStepOneToOne(pipe, "trainer", root, func(ctx context.Context, input int) (int, error) {
		return input, nil
	}, pipeline.StepModel[int](&modelcontrol.Config{Name: "classifier"}))
	require.NoError(t, err)
	splitter, err := pipeline.AddSplitter(pipe, "splitter", trained, 2)
	require.NoError(t, err)
	first, _ := splitter.Get()
	second, _ := splitter.Get()
	merged, err := pipeline.AddMerger(pipe, "merger", first, second)
	require.NoError(t, err)
	err = pipeline.AddSink(pipe, "writer", merged, func(ctx context.Context, input int) error { return nil })
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	got := string(content)
	assert.Contains(t, got, "strict digraph")
	assert.Contains(t, got, `"start" -> "loader"`)
	assert.Contains(t, got, `"loader" -> "trainer"`)
	assert.Contains(t, got, `"trainer" -> "splitter"`)
	assert.Contains(t, got, `"splitter" -> "merger"`)
	assert.Contains(t, got, `"merger" -> "writer"`)
	assert.Contains(t, got, `"writer" -> "end"`)
	assert.Contains(t, got, `tooltip="model classifier"`)
}

func TestPipelineDrawerFailedRun(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "pipeline.dot")
	pipe, err := pipeline.New(context.Background(), drawer.PipelineDrawer(drawer.NewDOTDrawer(fileName), nil))
	require.NoError(t, err)
	root, err := pipeline.AddRootStep(pipe, "loader", func(ctx context.Context, rootChan chan<- int) error {
		return assert.AnError
	})
	require.NoError(t, err)
	err = pipeline.AddSinkFromChan(pipe, "writer", root, func(ctx context.Context, input <-chan int) error {
		for range input {
		}

		return nil
	})
	require.NoError(t, err)

	require.ErrorIs(t, pipe.Run(), assert.AnError)

	content, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(content), `color="red"`)
}

func TestRenderIsStable(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("")
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, d.AddStep(name))
	}
	require.NoError(t, d.AddLink("a", "b"))
	require.NoError(t, d.AddLink("a", "c"))
	require.NoError(t, d.AddMeasure(measure.NewDefaultMeasure()))

	first := &bytes.Buffer{}
	require.NoError(t, d.Render(first))
	second := &bytes.Buffer{}
	require.NoError(t, d.Render(second))
	assert.Equal(t, first.String(), second.String())
	assert.Less(t, bytes.Index(first.Bytes(), []byte(`"a" -> "b"`)), bytes.Index(first.Bytes(), []byte(`"a" -> "c"`)))
}
