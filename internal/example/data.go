package example

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
)

var ErrInvalidDataConfig = errors.New("invalid data loader config")

// Sample is one labelled point.
type Sample struct {
	Features []float64
	Label    int
}

// Dataset is the output of the data loader.
type Dataset struct {
	Train          []Sample
	Test           []Sample
	TrainBatchSize int
	TestBatchSize  int
}

// DataLoaderConfig configures the synthetic data loader.
type DataLoaderConfig struct {
	TrainBatchSize int
	TestBatchSize  int
	// Samples is the size of the training set. The test set is a quarter of it.
	Samples  int
	Features int
	// Separation is the distance between the centers of the two classes on
	// every feature.
	Separation float64
	Seed       uint64
}

// DefaultDataLoaderConfig returns a config producing two well separated
// classes.
func DefaultDataLoaderConfig() DataLoaderConfig {
	return DataLoaderConfig{
		TrainBatchSize: 4,
		TestBatchSize:  4,
		Samples:        400,
		Features:       2,
		Separation:     4,
		Seed:           42,
	}
}

func (c DataLoaderConfig) validate() error {
	if c.TrainBatchSize <= 0 || c.TestBatchSize <= 0 {
		return errors.Wrap(ErrInvalidDataConfig, "batch sizes must be positive")
	}
	if c.Samples < 4 {
		return errors.Wrapf(ErrInvalidDataConfig, "at least 4 samples are needed, got %d", c.Samples)
	}
	if c.Features <= 0 {
		return errors.Wrap(ErrInvalidDataConfig, "features must be positive")
	}

	return nil
}

// LoadData draws two gaussian classes centered on -separation/2 and
// +separation/2. The same seed always gives the same dataset.
func LoadData(cfg DataLoaderConfig) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec
	draw := func(n int) []Sample {
		samples := make([]Sample, n)
		for i := range samples {
			label := i % 2
			center := cfg.Separation / 2
			if label == 0 {
				center = -center
			}
			features := make([]float64, cfg.Features)
			for j := range features {
				features[j] = center + rnd.NormFloat64()
			}
			samples[i] = Sample{Features: features, Label: label}
		}
		rnd.Shuffle(n, func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

		return samples
	}

	return &Dataset{
		Train:          draw(cfg.Samples),
		Test:           draw(max(cfg.Samples/4, 2)),
		TrainBatchSize: cfg.TrainBatchSize,
		TestBatchSize:  cfg.TestBatchSize,
	}, nil
}

// Scaler standardizes features with the statistics of the training set.
type Scaler struct {
	Mean []float64
	Std  []float64
}

func fitScaler(samples []Sample) Scaler {
	dim := len(samples[0].Features)
	s := Scaler{Mean: make([]float64, dim), Std: make([]float64, dim)}
	for _, sample := range samples {
		for j, v := range sample.Features {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= float64(len(samples))
	}
	for _, sample := range samples {
		for j, v := range sample.Features {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / float64(len(samples)))
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}

	return s
}

func (s Scaler) transform(samples []Sample) []Sample {
	res := make([]Sample, len(samples))
	for i, sample := range samples {
		features := make([]float64, len(sample.Features))
		for j, v := range sample.Features {
			features[j] = (v - s.Mean[j]) / s.Std[j]
		}
		res[i] = Sample{Features: features, Label: sample.Label}
	}

	return res
}

// Prepared is a dataset standardized by the preprocessor. Test keeps the raw
// features: the trained classifier folds the scaler into its coefficients.
type Prepared struct {
	Train     []Sample
	Test      []Sample
	Scaler    Scaler
	BatchSize int
}

// Preprocess fits a scaler on the training set and standardizes it.
func Preprocess(ds *Dataset) (*Prepared, error) {
	if ds == nil || len(ds.Train) == 0 {
		return nil, errors.Wrap(ErrInvalidDataConfig, "empty training set")
	}
	scaler := fitScaler(ds.Train)

	return &Prepared{
		Train:     scaler.transform(ds.Train),
		Test:      ds.Test,
		Scaler:    scaler,
		BatchSize: ds.TrainBatchSize,
	}, nil
}
