package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I], opts []StepOption[I]) (*model.Step[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := newStep(name, model.StepInfo{Type: model.SinkStepType}, opts)
	for _, opt := range pipe.opts {
		err := opt.PrepareSink(parentDetails(input), step.Details)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to prepare sink %s", name)
		}
	}

	return step, nil
}

// addSink schedules run for when the pipeline starts and reports the total
// duration of the sink once run returns.
func addSink[I any](pipe *Pipeline, step *model.Step[I], run func(ctx context.Context) error) {
	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(step.Details.Name, errC))

	pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
		defer close(errC)

		err := run(model.ContextWithStep(ctx, step.Details))
		if err != nil {
			errC <- err

			return
		}

		totalDuration := time.Since(pipe.startTime)
		for _, opt := range pipe.opts {
			err := opt.AfterSink(step.Details, totalDuration)
			if err != nil {
				errC <- errors.Wrap(err, "unable to run after sink function")

				return
			}
		}
	})
}

func sequentialSink[I any](ctx context.Context, goIdx int, pipe *Pipeline, input, step *model.Step[I],
	sinkFn func(ctx context.Context, input I) error,
) error {
	parent := parentDetails(input)
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			endIter := time.Since(startIter)

			startFn := time.Now()
			err := sinkFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(parent, step.Details, endIter, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run on sink output function")
				}
			}
		}
	}
}

// AddSink adds a step consuming every value of input with sinkFn.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error,
	opts ...StepOption[I],
) error {
	step, err := prepareSink(pipe, name, input, opts)
	if err != nil {
		return err
	}

	addSink(pipe, step, func(ctx context.Context) error {
		return runWorkers(ctx, step.Details.Concurrent, func(ctx context.Context, goIdx int) error {
			return sequentialSink(ctx, goIdx, pipe, input, step, sinkFn)
		})
	})

	return nil
}

// AddSinkFromChan adds a step handing the whole input channel to stepFn.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I],
	stepFn func(ctx context.Context, input <-chan I) error, opts ...StepOption[I],
) error {
	step, err := prepareSink(pipe, name, input, opts)
	if err != nil {
		return err
	}

	addSink(pipe, step, func(ctx context.Context) error {
		return stepFn(ctx, input.Output)
	})

	return nil
}
