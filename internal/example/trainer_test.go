package example_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlpipeline/internal/example"
)

var defaultTrainer = example.TrainerConfig{Epochs: 3, LR: 0.01, Momentum: 0.5}

func TestTrain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ds, err := example.LoadData(example.DefaultDataLoaderConfig())
	require.NoError(t, err)
	prepared, err := example.Preprocess(ds)
	require.NoError(t, err)

	trained, err := example.Train(ctx, prepared, defaultTrainer)
	require.NoError(t, err)
	assert.Len(t, trained.Classifier.Coef, 2)
	assert.Less(t, trained.Loss, 0.69)

	// the scaler is folded into the coefficients, raw test features work as is
	acc, err := trained.Classifier.Accuracy(ctx, trained.Test)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.9)
}

func TestTrainInvalidConfig(t *testing.T) {
	t.Parallel()

	prepared := &example.Prepared{Train: []example.Sample{{Features: []float64{1}, Label: 1}}}
	tcs := map[string]example.TrainerConfig{
		"epochs":   {Epochs: 0, LR: 0.01},
		"lr":       {Epochs: 1, LR: 0},
		"momentum": {Epochs: 1, LR: 0.01, Momentum: 1},
	}
	for name, cfg := range tcs {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := example.Train(context.Background(), prepared, cfg)
			assert.ErrorIs(t, err, example.ErrInvalidTrainerConfig)
		})
	}
}

func TestTrainCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prepared := &example.Prepared{Train: []example.Sample{{Features: []float64{1}, Label: 1}}, BatchSize: 1}
	_, err := example.Train(ctx, prepared, defaultTrainer)
	assert.ErrorIs(t, err, context.Canceled)
}
