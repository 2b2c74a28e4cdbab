package drawer

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/measure"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

type pipelineDrawer struct {
	model.BasePipelineOption
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStep(model.StartStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}
	err = pd.AddStep(model.EndStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) Start(ctx context.Context) (context.Context, error) {
	pd.startTime = time.Now()

	return ctx, nil
}

// addStep draws step below its parents.
func (pd *pipelineDrawer) addStep(step *model.StepInfo, parentSteps ...*model.StepInfo) error {
	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}
	for _, parentStep := range parentSteps {
		err = pd.AddLink(parentStep.Name, step.Name)
		if err != nil {
			return err
		}
	}
	if step.Model != nil {
		err = pd.SetModel(step.Name, step.Model.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStep(parentStep, step *model.StepInfo) error {
	return pd.addStep(step, parentStep)
}

func (pd *pipelineDrawer) PrepareSplitter(parentStep, splitterStep *model.StepInfo) error {
	return pd.addStep(splitterStep, parentStep)
}

func (pd *pipelineDrawer) PrepareMerger(parentSteps []*model.StepInfo, step *model.StepInfo) error {
	return pd.addStep(step, parentSteps...)
}

func (pd *pipelineDrawer) PrepareSink(parentStep, step *model.StepInfo) error {
	err := pd.addStep(step, parentStep)
	if err != nil {
		return err
	}

	return pd.AddLink(step.Name, model.EndStep.Details.Name)
}

// Finish draws the pipeline, with its measures when a measure is set. A
// failed run is drawn with a red end step.
func (pd *pipelineDrawer) Finish(runErr error) error {
	if runErr != nil {
		err := pd.SetFailed(model.EndStep.Details.Name, runErr)
		if err != nil {
			return errors.Wrap(err, "unable to mark failed run")
		}
	}

	if pd.m != nil {
		err := pd.SetTotalTime(model.EndStep.Details.Name, time.Since(pd.startTime))
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer returns a pipeline option drawing the pipeline once it has
// run. measure can be nil.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure, startTime: time.Now()}
}
