package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
	ran       bool
}

// New creates a new pipeline. Steps run with a context derived from ctx.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	pipe := &Pipeline{
		ctx:       ctx,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run starts every step and waits for the pipeline to finish. The first step
// error cancels the remaining steps and is returned.
func (p *Pipeline) Run() error {
	if p.ran {
		return ErrPipelineAlreadyRun
	}
	p.ran = true
	p.startTime = time.Now()

	dCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	runCtx, startErr := p.startRun(dCtx)
	if startErr != nil {
		// steps still run so that every output channel gets closed,
		// but they all see a cancelled context.
		cancel()
		runCtx = dCtx
	}

	for _, fn := range p.goFn {
		go fn(runCtx)
	}

	// Wait for all steps to finish.
	runErr := waitForPipeline(p.errcList.list...)
	if startErr != nil {
		runErr = startErr
	}
	if runErr != nil {
		cancel()
	}

	err := p.finishRun(runErr)
	if runErr != nil {
		return runErr
	}

	return err
}

func (p *Pipeline) startRun(ctx context.Context) (context.Context, error) {
	for _, opt := range p.opts {
		var err error
		ctx, err = opt.Start(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "unable to start pipeline option")
		}
	}

	return ctx, nil
}

func (p *Pipeline) finishRun(runErr error) error {
	var firstErr error
	for _, opt := range p.opts {
		err := opt.Finish(runErr)
		if err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return firstErr
}

// parentDetails returns the details of step, falling back on the start step
// for inputs built outside of the pipeline.
func parentDetails[I any](step *model.Step[I]) *model.StepInfo {
	if step.Details == nil {
		return model.StartStep.Details
	}

	return step.Details
}
