// Package example is a continuous deployment pipeline: it trains a linear
// classifier on synthetic data, evaluates it and deploys it when it is
// accurate enough.
package example

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/artifact"
	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/pkg/deployer"
	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
	"github.com/askiada/go-mlpipeline/pkg/pipeline"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/modelplane"
)

const (
	PipelineName     = "continuous_deployment_pipeline"
	DeployerStepName = "model_deployer_step"
	ModelName        = "linear-classifier"
	// ModelArtifact is the name of the artifact linked to the model version.
	ModelArtifact = "model"
)

var (
	ErrNoModelVersion = errors.New("no model version in the run context")
	ErrMissingDeps    = errors.New("registry and deployer must be set")
)

// DeploymentTriggerConfig holds the accuracy a model needs to be deployed.
type DeploymentTriggerConfig struct {
	MinAccuracy float64
}

// Config gathers the configuration of every step.
type Config struct {
	Loader  DataLoaderConfig
	Trainer TrainerConfig
	Trigger DeploymentTriggerConfig
}

// Deps are the services the steps talk to. Artifacts is optional: without it
// the model saver only logs the trained model.
type Deps struct {
	Registry  *modelcontrol.Registry
	Deployer  deployer.Deployer
	Artifacts *artifact.Manager
	Logger    *logging.Logger
}

// Evaluation is the output of the evaluator.
type Evaluation struct {
	Classifier *Classifier
	Accuracy   float64
}

// Pipeline is a built continuous deployment pipeline.
type Pipeline struct {
	*pipeline.Pipeline
	Models *modelplane.Option
}

// ModelConfig is the model control plane config shared by the trainer and the
// deployer.
func ModelConfig() *modelcontrol.Config {
	return &modelcontrol.Config{
		Name:             ModelName,
		Description:      "Logistic regression trained on synthetic gaussian data",
		License:          "Apache-2.0",
		Tags:             []string{"example", "classification"},
		CreateNewVersion: true,
	}
}

type steps struct {
	cfg    Config
	deps   Deps
	logger *logging.Logger
}

func (s *steps) stepLogger(ctx context.Context) *logging.Logger {
	logger := s.logger
	if step, ok := model.StepFromContext(ctx); ok {
		logger = logger.WithStep(step.Name)
	}
	if v, ok := modelplane.ModelVersion(ctx, ModelName); ok {
		logger = logger.WithModel(v.ModelName, v.Name)
	}

	return logger
}

func (s *steps) dataLoader(ctx context.Context, out chan<- *Dataset) error {
	ds, err := LoadData(s.cfg.Loader)
	if err != nil {
		return err
	}
	s.stepLogger(ctx).Info("data loaded", "train", len(ds.Train), "test", len(ds.Test))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- ds:
	}

	return nil
}

func (s *steps) preprocessor(_ context.Context, ds *Dataset) (*Prepared, error) {
	return Preprocess(ds)
}

func (s *steps) trainer(ctx context.Context, data *Prepared) (*Trained, error) {
	trained, err := Train(ctx, data, s.cfg.Trainer)
	if err != nil {
		return nil, err
	}
	s.stepLogger(ctx).Info("model trained", "loss", trained.Loss, "epochs", s.cfg.Trainer.Epochs)

	return trained, nil
}

func (s *steps) evaluator(ctx context.Context, trained *Trained) (*Evaluation, error) {
	acc, err := trained.Classifier.Accuracy(ctx, trained.Test)
	if err != nil {
		return nil, err
	}
	s.stepLogger(ctx).Info("model evaluated", "accuracy", acc)

	return &Evaluation{Classifier: trained.Classifier, Accuracy: acc}, nil
}

func (s *steps) deploymentTrigger(ctx context.Context, eval *Evaluation) (*Evaluation, bool, error) {
	deploy := eval.Accuracy >= s.cfg.Trigger.MinAccuracy
	s.stepLogger(ctx).Info("deployment decision", "accuracy", eval.Accuracy,
		"min_accuracy", s.cfg.Trigger.MinAccuracy, "deploy", deploy)

	return eval, deploy, nil
}

func (s *steps) modelDeployer(ctx context.Context, eval *Evaluation) error {
	version, ok := modelplane.StepVersion(ctx)
	if !ok {
		return ErrNoModelVersion
	}

	svc, err := s.deps.Deployer.Deploy(ctx, deployer.Config{
		PipelineName: PipelineName,
		StepName:     DeployerStepName,
		ModelName:    version.ModelName,
		ModelVersion: version.Name,
	}, eval.Classifier)
	if err != nil {
		return errors.Wrap(err, "unable to deploy model")
	}

	_, err = s.deps.Registry.SetStage(ctx, version.ModelName, version.Name, modelcontrol.StageProduction)
	if err != nil {
		return errors.Wrap(err, "unable to promote model")
	}
	s.stepLogger(ctx).Info("model deployed", "service", svc.UUID.String(), "state", string(svc.Status.State))

	return nil
}

func (s *steps) modelSaver(ctx context.Context, trained *Trained) error {
	logger := s.stepLogger(ctx)
	if s.deps.Artifacts == nil {
		logger.Info("no artifact store, model not saved")

		return nil
	}
	version, ok := modelplane.ModelVersion(ctx, ModelName)
	if !ok {
		return ErrNoModelVersion
	}

	key := artifact.Key(version.ModelName, version.Name, ModelArtifact)
	uri, err := s.deps.Artifacts.Save(ctx, key, trained.Classifier.Estimator(s.cfg.Trainer))
	if err != nil {
		return errors.Wrap(err, "unable to save model")
	}

	return s.deps.Registry.LinkArtifact(ctx, version, ModelArtifact, uri)
}

// Build wires the steps into a pipeline. The model control plane option is
// always installed first; opts are added after it.
func Build(ctx context.Context, cfg Config, deps Deps, opts ...model.PipelineOption) (*Pipeline, error) {
	if deps.Registry == nil || deps.Deployer == nil {
		return nil, ErrMissingDeps
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &steps{cfg: cfg, deps: deps, logger: logger.WithPipeline(PipelineName)}

	models := modelplane.New(deps.Registry, PipelineName, logger)
	pipe, err := pipeline.New(ctx, append([]model.PipelineOption{models}, opts...)...)
	if err != nil {
		return nil, err
	}

	loader, err := pipeline.AddRootStep(pipe, "data_loader", s.dataLoader)
	if err != nil {
		return nil, err
	}
	prepared, err := pipeline.AddStepOneToOne(pipe, "preprocessor", loader, s.preprocessor)
	if err != nil {
		return nil, err
	}
	trained, err := pipeline.AddStepOneToOne(pipe, "trainer", prepared, s.trainer,
		pipeline.StepModel[*Trained](ModelConfig()))
	if err != nil {
		return nil, err
	}

	splitter, err := pipeline.AddSplitter(pipe, "splitter", trained, 2)
	if err != nil {
		return nil, err
	}
	toEvaluate, _ := splitter.Get()
	toSave, _ := splitter.Get()

	evaluated, err := pipeline.AddStepOneToOne(pipe, "evaluator", toEvaluate, s.evaluator)
	if err != nil {
		return nil, err
	}
	triggered, err := pipeline.AddStepOneToOneOrZero(pipe, "deployment_trigger", evaluated, s.deploymentTrigger)
	if err != nil {
		return nil, err
	}
	err = pipeline.AddSink(pipe, DeployerStepName, triggered, s.modelDeployer,
		pipeline.StepModel[*Evaluation](ModelConfig()))
	if err != nil {
		return nil, err
	}
	err = pipeline.AddSink(pipe, "model_saver", toSave, s.modelSaver)
	if err != nil {
		return nil, err
	}

	return &Pipeline{Pipeline: pipe, Models: models}, nil
}
