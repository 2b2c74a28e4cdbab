package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/pkg/pipeline"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

func createInputChan(t *testing.T, total int) chan int {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := range total {
			inputChan <- i
		}
	}()

	return inputChan
}

func addIntRoot(t *testing.T, pipe *pipeline.Pipeline, total int) *model.Step[int] {
	t.Helper()

	root, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	})
	require.NoError(t, err)

	return root
}

func processOutputChan[O any](t *testing.T, output <-chan O) []O {
	t.Helper()

	res := []O{}
	for out := range output {
		res = append(res, out)
	}

	return res
}

// collect starts reading output in the background.
func collect[O any](t *testing.T, output <-chan O) <-chan []O {
	t.Helper()

	got := make(chan []O, 1)
	go func() {
		got <- processOutputChan(t, output)
	}()

	return got
}

func intRange(total int) []int {
	res := make([]int, total)
	for i := range res {
		res[i] = i
	}

	return res
}
