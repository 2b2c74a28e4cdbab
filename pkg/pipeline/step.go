package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

// outputHook is called every time a step pushes a value to its output.
type outputHook func(iterationDuration, computationDuration time.Duration) error

func noopOutputHook(_, _ time.Duration) error { return nil }

// runWorkers runs worker concurrent times. Every worker stops as soon as one
// of them fails.
func runWorkers(ctx context.Context, concurrent int, worker func(ctx context.Context, goIdx int) error) error {
	if concurrent <= 1 {
		return worker(ctx, 0)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)
	for goIdx := 0; goIdx < concurrent; goIdx++ {
		localGoIdx := goIdx
		errGrp.Go(func() error {
			return worker(dCtx, localGoIdx)
		})
	}

	return errGrp.Wait()
}

func sequentialOneToMany[I any, O any](ctx context.Context, goIdx int, input *model.Step[I], output *model.Step[O],
	oneToManyFn func(context.Context, I) ([]O, error), onOutput outputHook,
) error {
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}
			startFn := time.Now()
			outs, err := oneToManyFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)

			for _, out := range outs {
				// check the context again so that no goroutine keeps feeding
				// the pipeline once it has been cancelled.
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
				case output.Output <- out:
					err = onOutput(time.Since(startIter)-endFn, endFn)
					if err != nil {
						return errors.Wrapf(err, "go routine %d", goIdx)
					}
				}
			}
		}
	}
}

func runOneToMany[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O],
	oneToManyFn func(context.Context, I) ([]O, error), onOutput outputHook,
) error {
	return runWorkers(ctx, output.Details.Concurrent, func(ctx context.Context, goIdx int) error {
		return sequentialOneToMany(ctx, goIdx, input, output, oneToManyFn, onOutput)
	})
}

func runOneToOne[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error), onOutput outputHook,
) error {
	return runOneToMany(ctx, input, output, func(ctx context.Context, in I) ([]O, error) {
		out, err := oneToOneFn(ctx, in)
		if err != nil {
			return nil, err
		}

		return []O{out}, nil
	}, onOutput)
}

func runOneToOneOrZero[I any, O any](ctx context.Context, input *model.Step[I], output *model.Step[O],
	oneToOneOrZeroFn func(context.Context, I) (O, bool, error), onOutput outputHook,
) error {
	return runOneToMany(ctx, input, output, func(ctx context.Context, in I) ([]O, error) {
		out, keep, err := oneToOneOrZeroFn(ctx, in)
		if err != nil || !keep {
			return nil, err
		}

		return []O{out}, nil
	}, onOutput)
}

func newStep[O any](name string, details model.StepInfo, opts []StepOption[O]) *model.Step[O] {
	details.Name = name
	details.Concurrent = 1
	step := &model.Step[O]{Details: &details}
	for _, opt := range opts {
		opt(step)
	}
	if step.Details.Concurrent < 1 {
		step.Details.Concurrent = 1
	}

	return step
}

func prepareStep[I, O any](p *Pipeline, name string, input *model.Step[I], opts []StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := newStep(name, model.StepInfo{Type: model.NormalStepType}, opts)
	step.Output = make(chan O, step.Details.BufferSize)

	for _, opt := range p.opts {
		err := opt.PrepareStep(parentDetails(input), step.Details)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to prepare step %s", name)
		}
	}

	return step, nil
}

func (p *Pipeline) stepOutputHook(parent, step *model.StepInfo) outputHook {
	if len(p.opts) == 0 {
		return noopOutputHook
	}

	return func(iterationDuration, computationDuration time.Duration) error {
		for _, opt := range p.opts {
			err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
			if err != nil {
				return errors.Wrap(err, "unable to run on step output function")
			}
		}

		return nil
	}
}

// addStep schedules run for when the pipeline starts. The output of step is
// closed once run returns.
func addStep[O any](p *Pipeline, step *model.Step[O], run func(ctx context.Context) error) {
	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(step.Details.Name, errC))

	p.goFn = append(p.goFn, func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()
		err := run(model.ContextWithStep(ctx, step.Details))
		if err != nil {
			errC <- err
		}
	})
}

// AddStepOneToOne adds a step producing one output for every input.
func AddStepOneToOne[I any, O any](p *Pipeline, name string, input *model.Step[I],
	oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep(p, name, input, opts)
	if err != nil {
		return nil, err
	}
	onOutput := p.stepOutputHook(parentDetails(input), step.Details)
	addStep(p, step, func(ctx context.Context) error {
		return runOneToOne(ctx, input, step, oneToOneFn, onOutput)
	})

	return step, nil
}

// AddStepOneToOneOrZero adds a step producing at most one output for every
// input. Inputs for which oneToOneOrZeroFn returns false are dropped.
func AddStepOneToOneOrZero[I any, O any](p *Pipeline, name string, input *model.Step[I],
	oneToOneOrZeroFn func(context.Context, I) (O, bool, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep(p, name, input, opts)
	if err != nil {
		return nil, err
	}
	onOutput := p.stepOutputHook(parentDetails(input), step.Details)
	addStep(p, step, func(ctx context.Context) error {
		return runOneToOneOrZero(ctx, input, step, oneToOneOrZeroFn, onOutput)
	})

	return step, nil
}

// AddStepOneToMany adds a step producing any number of outputs for every input.
func AddStepOneToMany[I any, O any](p *Pipeline, name string, input *model.Step[I],
	oneToManyFn func(context.Context, I) ([]O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep(p, name, input, opts)
	if err != nil {
		return nil, err
	}
	onOutput := p.stepOutputHook(parentDetails(input), step.Details)
	addStep(p, step, func(ctx context.Context) error {
		return runOneToMany(ctx, input, step, oneToManyFn, onOutput)
	})

	return step, nil
}
