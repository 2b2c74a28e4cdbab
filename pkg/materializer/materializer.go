// Package materializer turns the values passed between steps into bytes that
// can be stored as artifacts, and back.
package materializer

import (
	"context"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrMaterializerExists = errors.New("a materializer is already registered for this type")
	ErrNoMaterializer     = errors.New("no materializer for this type")
	ErrUnsupportedType    = errors.New("unsupported type")
)

// Materializer writes and reads values of the types it handles.
type Materializer interface {
	// Name identifies the materializer in artifact metadata.
	Name() string
	// Types lists the types handled by the materializer. A materializer with
	// no types is the fallback for types nobody else handles.
	Types() []reflect.Type
	Save(ctx context.Context, w io.Writer, v any) error
	// Load decodes into target, a pointer to a handled type.
	Load(ctx context.Context, r io.Reader, target any) error
}

// Registry maps types to materializers.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]Materializer
	byName   map[string]Materializer
	fallback Materializer
}

// NewRegistry returns a registry using fallback for unregistered types.
// fallback can be nil.
func NewRegistry(fallback Materializer) *Registry {
	r := &Registry{
		byType:   make(map[reflect.Type]Materializer),
		byName:   make(map[string]Materializer),
		fallback: fallback,
	}
	if fallback != nil {
		r.byName[fallback.Name()] = fallback
	}

	return r
}

// Register registers m for every type it handles. A materializer without
// types becomes the fallback, there can only be one.
func (r *Registry) Register(m Materializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(m.Types()) == 0 {
		if r.fallback != nil {
			return errors.Wrapf(ErrMaterializerExists, "fallback %s", r.fallback.Name())
		}
		r.fallback = m
		r.byName[m.Name()] = m

		return nil
	}

	for _, t := range m.Types() {
		if existing, ok := r.byType[t]; ok {
			return errors.Wrapf(ErrMaterializerExists, "%s for %s", existing.Name(), t)
		}
	}
	for _, t := range m.Types() {
		r.byType[t] = m
	}
	r.byName[m.Name()] = m

	return nil
}

// For returns the materializer of the type of v, or of the type pointed at
// when v is a pointer.
func (r *Registry) For(v any) (Materializer, error) {
	if v == nil {
		return nil, errors.Wrap(ErrNoMaterializer, "nil value")
	}

	return r.ForType(reflect.TypeOf(v))
}

// ForType returns the materializer of t.
func (r *Registry) ForType(t reflect.Type) (Materializer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byType[t]; ok {
		return m, nil
	}
	if t.Kind() == reflect.Pointer {
		if m, ok := r.byType[t.Elem()]; ok {
			return m, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}

	return nil, errors.Wrapf(ErrNoMaterializer, "%s", t)
}

// ByName returns the materializer called name.
func (r *Registry) ByName(name string) (Materializer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoMaterializer, "name %q", name)
	}

	return m, nil
}

// Names lists the registered materializers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
