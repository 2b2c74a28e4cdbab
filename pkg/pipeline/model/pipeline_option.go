package model

import (
	"context"
	"time"
)

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// Start runs when the pipeline starts. The returned context is the one
	// every step runs with.
	Start(ctx context.Context) (context.Context, error)

	pipelineStepOption
	pipelineSpiltterOption
	pipelineMergerOption
	pipelineSinkOption

	// Finish runs after the pipeline is finished. runErr is the error that
	// stopped the run, nil on success.
	Finish(runErr error) error
}

// pipelineStepOption defines the interface for step options at the pipeline level.
type pipelineStepOption interface {
	// PrepareStep runs before the step is executed.
	PrepareStep(parentStep, step *StepInfo) error
	// OnStepOutput runs everytime something is pushed to the output of the step.
	OnStepOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
}

// pipelineSpiltterOption defines the interface for splitter options at the pipeline level.
type pipelineSpiltterOption interface {
	// PrepareSplitter runs before the splitter step is executed.
	PrepareSplitter(parentStep, splitterStep *StepInfo) error
	// OnSplitterOutput runs everytime something is pushed to the output of the splitter step.
	OnSplitterOutput(parentStep, splitterStep *StepInfo, iterationDuration, computationDuration time.Duration) error
}

// pipelineMergerOption defines the interface for merger options at the pipeline level.
type pipelineMergerOption interface {
	// PrepareMerger runs before the merger step is executed.
	PrepareMerger(parentStep []*StepInfo, step *StepInfo) error
	// OnMergerOutput runs everytime something is pushed to the output of the merger step.
	OnMergerOutput(parentStep *StepInfo, outputStep *StepInfo, iterationDuration time.Duration) error
}

// pipelineSinkOption defines the interface for sink options at the pipeline level.
type pipelineSinkOption interface {
	// PrepareSink runs before the sink step is executed.
	PrepareSink(parentStep, step *StepInfo) error
	// OnSinkOutput runs everytime something is pushed to the output of the sink step.
	OnSinkOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink runs after the sink step is executed.
	AfterSink(step *StepInfo, totalDuration time.Duration) error
}

// BasePipelineOption implements every hook as a no-op. Options embed it and
// override the hooks they need.
type BasePipelineOption struct{}

func (BasePipelineOption) New() error { return nil }

func (BasePipelineOption) Start(ctx context.Context) (context.Context, error) { return ctx, nil }

func (BasePipelineOption) PrepareStep(_, _ *StepInfo) error { return nil }

func (BasePipelineOption) OnStepOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (BasePipelineOption) PrepareSplitter(_, _ *StepInfo) error { return nil }

func (BasePipelineOption) OnSplitterOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (BasePipelineOption) PrepareMerger(_ []*StepInfo, _ *StepInfo) error { return nil }

func (BasePipelineOption) OnMergerOutput(_, _ *StepInfo, _ time.Duration) error { return nil }

func (BasePipelineOption) PrepareSink(_, _ *StepInfo) error { return nil }

func (BasePipelineOption) OnSinkOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (BasePipelineOption) AfterSink(_ *StepInfo, _ time.Duration) error { return nil }

func (BasePipelineOption) Finish(_ error) error { return nil }

var _ PipelineOption = BasePipelineOption{}
