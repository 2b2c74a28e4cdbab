package materializer

import (
	"context"
	"io"
	"reflect"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAMLMaterializer stores any value yaml.v3 can encode. It is the default
// fallback.
type YAMLMaterializer struct{}

func (YAMLMaterializer) Name() string { return "yaml" }

func (YAMLMaterializer) Types() []reflect.Type { return nil }

func (YAMLMaterializer) Save(_ context.Context, w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(v)
	if err != nil {
		return errors.Wrap(err, "unable to encode value")
	}

	return errors.Wrap(enc.Close(), "unable to flush value")
}

func (YAMLMaterializer) Load(_ context.Context, r io.Reader, target any) error {
	err := yaml.NewDecoder(r).Decode(target)
	if err != nil {
		return errors.Wrap(err, "unable to decode value")
	}

	return nil
}

var _ Materializer = YAMLMaterializer{}
