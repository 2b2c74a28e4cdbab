package example

import (
	"context"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/integrations/sklearn"
)

var ErrFeatureMismatch = errors.New("feature count mismatch")

// Classifier is a binary logistic regression working on raw features.
type Classifier struct {
	Coef      []float64
	Intercept float64
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Probability returns the probability of the positive class.
func (c *Classifier) Probability(features []float64) (float64, error) {
	if len(features) != len(c.Coef) {
		return 0, errors.Wrapf(ErrFeatureMismatch, "expected %d, got %d", len(c.Coef), len(features))
	}
	z := c.Intercept
	for i, v := range features {
		z += c.Coef[i] * v
	}

	return sigmoid(z), nil
}

// Predict returns the predicted class of every instance.
func (c *Classifier) Predict(_ context.Context, instances [][]float64) ([]float64, error) {
	res := make([]float64, len(instances))
	for i, instance := range instances {
		p, err := c.Probability(instance)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
		if p >= 0.5 {
			res[i] = 1
		}
	}

	return res, nil
}

// Accuracy is the share of samples classified correctly.
func (c *Classifier) Accuracy(ctx context.Context, samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	instances := make([][]float64, len(samples))
	for i, s := range samples {
		instances[i] = s.Features
	}
	preds, err := c.Predict(ctx, instances)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range preds {
		if int(p) == samples[i].Label {
			correct++
		}
	}

	return float64(correct) / float64(len(samples)), nil
}

// Estimator describes the classifier as a scikit-learn LogisticRegression.
func (c *Classifier) Estimator(cfg TrainerConfig) *sklearn.Estimator {
	return &sklearn.Estimator{
		Class: "sklearn.linear_model.LogisticRegression",
		Params: map[string]string{
			"epochs":   strconv.Itoa(cfg.Epochs),
			"lr":       strconv.FormatFloat(cfg.LR, 'g', -1, 64),
			"momentum": strconv.FormatFloat(cfg.Momentum, 'g', -1, 64),
		},
		Classes:   []int{0, 1},
		Coef:      [][]float64{append([]float64(nil), c.Coef...)},
		Intercept: []float64{c.Intercept},
	}
}

// ClassifierFromEstimator rebuilds a classifier from a saved estimator.
func ClassifierFromEstimator(est *sklearn.Estimator) (*Classifier, error) {
	if est == nil || len(est.Coef) != 1 || len(est.Intercept) != 1 {
		return nil, errors.Wrap(sklearn.ErrUnknownFormat, "not a binary linear estimator")
	}

	return &Classifier{
		Coef:      append([]float64(nil), est.Coef[0]...),
		Intercept: est.Intercept[0],
	}, nil
}
