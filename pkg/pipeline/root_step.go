package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

func prepareRootStep[O any](p *Pipeline, step *model.Step[O]) error {
	for _, opt := range p.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return errors.Wrapf(err, "unable to prepare root step %s", step.Details.Name)
		}
	}

	return nil
}

// AddRootStep adds a step feeding the pipeline. stepFn pushes values to
// rootChan; the channel is closed when stepFn returns.
func AddRootStep[O any](p *Pipeline, name string, stepFn func(ctx context.Context, rootChan chan<- O) error,
	opts ...StepOption[O],
) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := newStep(name, model.StepInfo{Type: model.RootStepType}, opts)
	step.Output = make(chan O, step.Details.BufferSize)

	err := prepareRootStep(p, step)
	if err != nil {
		return nil, err
	}

	addStep(p, step, func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return stepFn(ctx, step.Output)
	})

	return step, nil
}
