package measure

import "time"

// Measure holds the metrics of every step of a pipeline.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	Metric(name string) (Metric, bool)
	AllMetrics() map[string]Metric
}

// Metric accumulates the durations observed for one step.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddTransportDuration(inputStepName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]TransportInfo
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	AllTransports() map[string]TransportInfo
	Count() int64
}
