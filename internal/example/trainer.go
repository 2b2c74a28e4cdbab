package example

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

var ErrInvalidTrainerConfig = errors.New("invalid trainer config")

// TrainerConfig holds the hyper parameters of the trainer.
type TrainerConfig struct {
	Epochs   int
	LR       float64
	Momentum float64
}

func (c TrainerConfig) validate() error {
	if c.Epochs <= 0 {
		return errors.Wrapf(ErrInvalidTrainerConfig, "epochs must be positive, got %d", c.Epochs)
	}
	if c.LR <= 0 {
		return errors.Wrapf(ErrInvalidTrainerConfig, "learning rate must be positive, got %g", c.LR)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return errors.Wrapf(ErrInvalidTrainerConfig, "momentum must be in [0, 1), got %g", c.Momentum)
	}

	return nil
}

// Trained is the output of the trainer.
type Trained struct {
	Classifier *Classifier
	Test       []Sample
	// Loss is the mean log loss of the last epoch.
	Loss float64
}

// Train fits a logistic regression with mini batch SGD and momentum. The
// scaler of the prepared dataset is folded into the returned coefficients.
func Train(ctx context.Context, data *Prepared, cfg TrainerConfig) (*Trained, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if data == nil || len(data.Train) == 0 {
		return nil, errors.Wrap(ErrInvalidTrainerConfig, "empty training set")
	}
	batchSize := max(data.BatchSize, 1)
	dim := len(data.Train[0].Features)

	weights := make([]float64, dim)
	velocity := make([]float64, dim+1)
	var bias, loss float64
	grad := make([]float64, dim+1)

	for range cfg.Epochs {
		loss = 0
		for start := 0; start < len(data.Train); start += batchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			batch := data.Train[start:min(start+batchSize, len(data.Train))]
			clear(grad)
			for _, s := range batch {
				z := bias
				for j, v := range s.Features {
					z += weights[j] * v
				}
				p := sigmoid(z)
				diff := p - float64(s.Label)
				for j, v := range s.Features {
					grad[j] += diff * v
				}
				grad[dim] += diff
				loss += logLoss(p, s.Label)
			}
			for j := range grad {
				velocity[j] = cfg.Momentum*velocity[j] - cfg.LR*grad[j]/float64(len(batch))
			}
			for j := range weights {
				weights[j] += velocity[j]
			}
			bias += velocity[dim]
		}
		loss /= float64(len(data.Train))
	}

	clf := &Classifier{Coef: make([]float64, dim), Intercept: bias}
	scaled := len(data.Scaler.Mean) == dim && len(data.Scaler.Std) == dim
	for j, w := range weights {
		if !scaled {
			clf.Coef[j] = w
			continue
		}
		clf.Coef[j] = w / data.Scaler.Std[j]
		clf.Intercept -= w * data.Scaler.Mean[j] / data.Scaler.Std[j]
	}

	return &Trained{Classifier: clf, Test: data.Test, Loss: loss}, nil
}

func logLoss(p float64, label int) float64 {
	const eps = 1e-12
	if label == 1 {
		return -math.Log(max(p, eps))
	}

	return -math.Log(max(1-p, eps))
}
