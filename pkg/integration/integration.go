// Package integration registers optional integrations with third-party
// tools. An integration lists the packages it needs and a hook run when it is
// activated, typically registering the materializers of the tool.
package integration

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
)

var (
	ErrIntegrationExists   = errors.New("integration already registered")
	ErrUnknownIntegration  = errors.New("unknown integration")
	ErrRequirementsMissing = errors.New("integration requirements are not installed")
	ErrInvalidIntegration  = errors.New("invalid integration")
)

// Integration describes one integration.
type Integration struct {
	Name string
	// Requirements are the packages the integration needs at runtime.
	Requirements []string
	// Activate runs once, when the integration is first activated.
	Activate func(materializers *materializer.Registry) error
}

// Registry holds the known integrations and activates them on demand.
type Registry struct {
	mu            sync.Mutex
	integrations  map[string]*Integration
	active        map[string]bool
	checker       RequirementChecker
	materializers *materializer.Registry
	logger        *logging.Logger
}

// NewRegistry returns a registry checking requirements with checker and
// passing materializers to the activation hooks.
func NewRegistry(checker RequirementChecker, materializers *materializer.Registry, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Registry{
		integrations:  make(map[string]*Integration),
		active:        make(map[string]bool),
		checker:       checker,
		materializers: materializers,
		logger:        logger,
	}
}

// Register adds an integration. Names are case insensitive.
func (r *Registry) Register(integration *Integration) error {
	if integration == nil || strings.TrimSpace(integration.Name) == "" {
		return errors.Wrap(ErrInvalidIntegration, "name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(integration.Name)
	if _, ok := r.integrations[key]; ok {
		return errors.Wrap(ErrIntegrationExists, integration.Name)
	}
	r.integrations[key] = integration

	return nil
}

// Get returns the integration called name.
func (r *Registry) Get(name string) (*Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.get(name)
}

func (r *Registry) get(name string) (*Integration, error) {
	integration, ok := r.integrations[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrap(ErrUnknownIntegration, name)
	}

	return integration, nil
}

// List returns the registered integration names, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.integrations))
	for _, integration := range r.integrations {
		names = append(names, integration.Name)
	}
	sort.Strings(names)

	return names
}

// CheckInstallation returns the requirements of the integration that are not
// installed.
func (r *Registry) CheckInstallation(ctx context.Context, name string) ([]string, error) {
	integration, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return r.missing(ctx, integration)
}

func (r *Registry) missing(ctx context.Context, integration *Integration) ([]string, error) {
	var missing []string
	for _, requirement := range integration.Requirements {
		installed, err := r.checker.Installed(ctx, requirement)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to check requirement %s of %s", requirement, integration.Name)
		}
		if !installed {
			missing = append(missing, requirement)
		}
	}

	return missing, nil
}

// Activate checks the requirements of the integration and runs its hook.
// Activating an active integration does nothing.
func (r *Registry) Activate(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	integration, err := r.get(name)
	if err != nil {
		return err
	}
	key := strings.ToLower(integration.Name)
	if r.active[key] {
		return nil
	}

	missing, err := r.missing(ctx, integration)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrRequirementsMissing, "%s needs %s", integration.Name, strings.Join(missing, ", "))
	}

	if integration.Activate != nil {
		err = integration.Activate(r.materializers)
		if err != nil {
			return errors.Wrapf(err, "unable to activate integration %s", integration.Name)
		}
	}
	r.active[key] = true
	r.logger.Info("integration activated", "integration", integration.Name)

	return nil
}

// IsActive reports whether the integration has been activated.
func (r *Registry) IsActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active[strings.ToLower(name)]
}

// Requirements returns the requirements of the named integrations, without
// duplicates, in the order they are first listed.
func (r *Registry) Requirements(names ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var requirements []string
	for _, name := range names {
		integration, err := r.get(name)
		if err != nil {
			return nil, err
		}
		for _, requirement := range integration.Requirements {
			if seen[requirement] {
				continue
			}
			seen[requirement] = true
			requirements = append(requirements, requirement)
		}
	}

	return requirements, nil
}
