// Package pipeline provides a pipeline for processing data.
//
// The pipeline package offers a convenient way to process data using a series of stages. Each stage in the pipeline
// performs a specific operation on the data and passes it to the next stage over a channel. Stages run concurrently
// and a stage can run its function on several goroutines.
//
// The pipeline stops on the first encountered error. Every other stage sees a cancelled context and the error is
// returned by Run, prefixed with the name of the stage that failed.
//
// Steps can declare the model they work on with StepModel. Pipeline options, such as the modelplane option, use these
// declarations to resolve a model version for every model before the pipeline starts. A running step reads its own
// details with model.StepFromContext.
package pipeline
