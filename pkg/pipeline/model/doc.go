// Package model provides the data structures shared by the pipeline package and
// its options: steps, step details and the PipelineOption hooks.
package model
