package model

import (
	"context"

	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
)

type stepType string

const (
	RootStepType     stepType = "root"
	NormalStepType   stepType = "step"
	SplitterStepType stepType = "splitter"
	SinkStepType     stepType = "sink"
	MergerStepType   stepType = "merger"
)

// StepInfo describes a step of the pipeline.
type StepInfo struct {
	Type       stepType
	Name       string
	Concurrent int
	BufferSize int
	// Model is the model configuration the step asks a version for, if any.
	Model *modelcontrol.Config
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the output side of a step: the next steps read from Output.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}

type stepInfoKey struct{}

// ContextWithStep returns a context carrying the details of the running step.
func ContextWithStep(ctx context.Context, info *StepInfo) context.Context {
	return context.WithValue(ctx, stepInfoKey{}, info)
}

// StepFromContext returns the details of the step running with ctx.
func StepFromContext(ctx context.Context) (*StepInfo, bool) {
	info, ok := ctx.Value(stepInfoKey{}).(*StepInfo)

	return info, ok
}
