package pipeline

import (
	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines run the step function.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepBufferSize sets the capacity of the step output channel.
func StepBufferSize[O any](bufferSize int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.BufferSize = bufferSize
	}
}

// StepModel attaches a model configuration to the step. Options such as
// modelplane use it to resolve the model version the step works on.
func StepModel[O any](cfg *modelcontrol.Config) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Model = cfg
	}
}

type SplitterOption[I any] func(s *Splitter[I])

func SplitterBufferSize[I any](bufferSize int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = bufferSize
	}
}
