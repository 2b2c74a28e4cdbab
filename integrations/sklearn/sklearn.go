// Package sklearn is the scikit-learn integration. Activating it registers
// the materializer of scikit-learn estimators.
package sklearn

import (
	"context"
	"io"
	"reflect"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-mlpipeline/pkg/integration"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
)

const Name = "sklearn"

// Requirements are the Python packages a step using the integration needs.
var Requirements = []string{"scikit-learn", "scikit-image"}

// formatVersion is written in every saved estimator.
const formatVersion = "sklearn/v1"

var ErrUnknownFormat = errors.New("unknown estimator format")

// Estimator is a fitted scikit-learn estimator. Linear models are described
// by their coefficients; other estimators travel as a pickle.
type Estimator struct {
	// Class is the fully qualified class, e.g. sklearn.linear_model.LogisticRegression.
	Class     string            `yaml:"class"`
	Params    map[string]string `yaml:"params,omitempty"`
	Classes   []int             `yaml:"classes,omitempty"`
	Coef      [][]float64       `yaml:"coef,omitempty"`
	Intercept []float64         `yaml:"intercept,omitempty"`
	Pickle    []byte            `yaml:"pickle,omitempty"`
}

type document struct {
	Format    string     `yaml:"format"`
	Estimator *Estimator `yaml:"estimator"`
}

// Materializer stores estimators as YAML documents.
type Materializer struct{}

func (Materializer) Name() string { return Name }

func (Materializer) Types() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(Estimator{})}
}

func (Materializer) Save(_ context.Context, w io.Writer, v any) error {
	var est *Estimator
	switch value := v.(type) {
	case Estimator:
		est = &value
	case *Estimator:
		est = value
	default:
		return errors.Wrapf(materializer.ErrUnsupportedType, "%T", v)
	}

	enc := yaml.NewEncoder(w)
	err := enc.Encode(document{Format: formatVersion, Estimator: est})
	if err != nil {
		return errors.Wrap(err, "unable to encode estimator")
	}

	return errors.Wrap(enc.Close(), "unable to flush estimator")
}

func (Materializer) Load(_ context.Context, r io.Reader, target any) error {
	est, ok := target.(*Estimator)
	if !ok {
		return errors.Wrapf(materializer.ErrUnsupportedType, "%T", target)
	}

	var doc document
	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return errors.Wrap(err, "unable to decode estimator")
	}
	if doc.Format != formatVersion || doc.Estimator == nil {
		return errors.Wrapf(ErrUnknownFormat, "%q", doc.Format)
	}
	*est = *doc.Estimator

	return nil
}

// Integration returns the scikit-learn integration.
func Integration() *integration.Integration {
	return &integration.Integration{
		Name:         Name,
		Requirements: append([]string(nil), Requirements...),
		Activate: func(materializers *materializer.Registry) error {
			return materializers.Register(Materializer{})
		},
	}
}

// Register adds the integration to registry.
func Register(registry *integration.Registry) error {
	return registry.Register(Integration())
}
