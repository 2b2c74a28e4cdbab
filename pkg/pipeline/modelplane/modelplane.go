// Package modelplane connects a pipeline to the model registry.
//
// Steps declare the model they work on with pipeline.StepModel. While the
// pipeline is built, the option gathers one new version request per model,
// rejecting steps that disagree on the version. When the pipeline starts, it
// creates or resolves one version per model and hands them to the steps
// through the run context.
package modelplane

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

// Option is the pipeline option resolving model versions.
type Option struct {
	model.BasePipelineOption

	registry     *modelcontrol.Registry
	pipelineName string
	logger       *logging.Logger

	mu       sync.Mutex
	order    []string
	requests map[string]*modelcontrol.NewVersionRequest
	versions map[string]*modelcontrol.Version
	created  []*modelcontrol.Version
}

// New returns the option for the pipeline called pipelineName.
func New(registry *modelcontrol.Registry, pipelineName string, logger *logging.Logger) *Option {
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Option{
		registry:     registry,
		pipelineName: pipelineName,
		logger:       logger.WithPipeline(pipelineName),
		requests:     make(map[string]*modelcontrol.NewVersionRequest),
		versions:     make(map[string]*modelcontrol.Version),
	}
}

func (o *Option) request(step *model.StepInfo) error {
	if step.Model == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	name := step.Model.Name
	req, ok := o.requests[name]
	if !ok {
		req = &modelcontrol.NewVersionRequest{}
	}

	err := req.Update(step.Model, modelcontrol.Requester{Source: o.pipelineName, Name: step.Name})
	if err != nil {
		return errors.Wrapf(err, "step %s", step.Name)
	}

	if !ok {
		o.requests[name] = req
		o.order = append(o.order, name)
	}

	return nil
}

func (o *Option) PrepareStep(_, step *model.StepInfo) error {
	return o.request(step)
}

func (o *Option) PrepareSink(_, step *model.StepInfo) error {
	return o.request(step)
}

// Request returns the request gathered for the model.
func (o *Option) Request(modelName string) (*modelcontrol.NewVersionRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	req, ok := o.requests[modelName]

	return req, ok
}

type versionsKey struct{}

// Start creates or resolves the version of every requested model. Versions
// created before a failure are handled by Finish like those of a failed run.
func (o *Option) Start(ctx context.Context) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, name := range o.order {
		req := o.requests[name]
		cfg, err := req.Config()
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", name)
		}

		version, err := o.registry.Resolve(ctx, req)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve a version of model %s", name)
		}
		if cfg.CreateNewVersion {
			o.created = append(o.created, version)
		}
		o.versions[name] = version

		o.logger.WithModel(name, version.Name).Info("model version ready",
			"number", version.Number,
			"created", cfg.CreateNewVersion,
			"requesters", len(req.Requesters),
		)
	}

	versions := make(map[string]*modelcontrol.Version, len(o.versions))
	for name, v := range o.versions {
		versions[name] = v
	}

	return context.WithValue(ctx, versionsKey{}, versions), nil
}

// rollback deletes the versions created by the run for the models asking for
// it with DeleteNewVersionOnFailure.
func (o *Option) rollback(ctx context.Context) error {
	var firstErr error
	for _, version := range o.created {
		cfg, err := o.requests[version.ModelName].Config()
		if err != nil || !cfg.DeleteNewVersionOnFailure {
			continue
		}

		err = o.registry.DeleteVersion(ctx, version.ModelName, version.Name)
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "unable to delete version %s of model %s", version.Name, version.ModelName)
		}
		if err == nil {
			delete(o.versions, version.ModelName)
			o.logger.WithModel(version.ModelName, version.Name).Warn("model version deleted after failure")
		}
	}
	o.created = nil

	return firstErr
}

// Finish deletes the versions created by a failed run when their model asks
// for it.
func (o *Option) Finish(runErr error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if runErr == nil {
		o.created = nil

		return nil
	}

	return o.rollback(context.Background())
}

// Versions returns the versions resolved by the last run, by model name.
func (o *Option) Versions() map[string]*modelcontrol.Version {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := make(map[string]*modelcontrol.Version, len(o.versions))
	for name, v := range o.versions {
		res[name] = v
	}

	return res
}

// ModelVersion returns the version of the model resolved for the run ctx
// belongs to.
func ModelVersion(ctx context.Context, modelName string) (*modelcontrol.Version, bool) {
	versions, ok := ctx.Value(versionsKey{}).(map[string]*modelcontrol.Version)
	if !ok {
		return nil, false
	}
	v, ok := versions[modelName]

	return v, ok
}

// StepVersion returns the version of the model of the step running with ctx.
func StepVersion(ctx context.Context) (*modelcontrol.Version, bool) {
	step, ok := model.StepFromContext(ctx)
	if !ok || step.Model == nil {
		return nil, false
	}

	return ModelVersion(ctx, step.Model.Name)
}

var _ model.PipelineOption = (*Option)(nil)
