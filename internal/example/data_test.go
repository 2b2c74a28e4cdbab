package example_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/internal/example"
)

func TestLoadData(t *testing.T) {
	t.Parallel()

	cfg := example.DefaultDataLoaderConfig()
	ds, err := example.LoadData(cfg)
	require.NoError(t, err)
	assert.Len(t, ds.Train, cfg.Samples)
	assert.Len(t, ds.Test, cfg.Samples/4)
	assert.Equal(t, cfg.TrainBatchSize, ds.TrainBatchSize)

	positives := 0
	for _, s := range ds.Train {
		assert.Len(t, s.Features, cfg.Features)
		positives += s.Label
	}
	assert.Equal(t, cfg.Samples/2, positives)

	again, err := example.LoadData(cfg)
	require.NoError(t, err)
	assert.Equal(t, ds, again)
}

func TestLoadDataInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]func(*example.DataLoaderConfig){
		"batch size": func(c *example.DataLoaderConfig) { c.TrainBatchSize = 0 },
		"samples":    func(c *example.DataLoaderConfig) { c.Samples = 1 },
		"features":   func(c *example.DataLoaderConfig) { c.Features = 0 },
	}
	for name, mutate := range tcs {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := example.DefaultDataLoaderConfig()
			mutate(&cfg)
			_, err := example.LoadData(cfg)
			assert.ErrorIs(t, err, example.ErrInvalidDataConfig)
		})
	}
}

func TestPreprocess(t *testing.T) {
	t.Parallel()

	ds := &example.Dataset{
		Train: []example.Sample{
			{Features: []float64{1, 5}, Label: 0},
			{Features: []float64{3, 5}, Label: 1},
		},
		TrainBatchSize: 2,
	}
	prepared, err := example.Preprocess(ds)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, prepared.Scaler.Mean)
	assert.Equal(t, []float64{1, 1}, prepared.Scaler.Std)
	assert.Equal(t, []float64{-1, 0}, prepared.Train[0].Features)
	assert.Equal(t, []float64{1, 0}, prepared.Train[1].Features)
	assert.Equal(t, 2, prepared.BatchSize)

	_, err = example.Preprocess(&example.Dataset{})
	assert.ErrorIs(t, err, example.ErrInvalidDataConfig)
}
