package measure

import (
	"sync"
	"time"
)

// TransportInfo is the time spent waiting on one input step.
type TransportInfo struct {
	Elapsed time.Duration
	Total   int64
}

type transport struct {
	elapsed time.Duration
	total   int64
}

type DefaultMetric struct {
	mu            sync.Mutex
	allTransports map[string]*transport
	endDuration   time.Duration
	stepElapsed   time.Duration
	total         int64
	concurrent    int
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.endDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.endDuration
}

// Count returns how many values the step processed.
func (mt *DefaultMetric) Count() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) AddTransportDuration(inputStepName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.allTransports[inputStepName] == nil {
		mt.allTransports[inputStepName] = &transport{}
	}
	ch := mt.allTransports[inputStepName]
	ch.elapsed += elapsed
	ch.total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stepElapsed) / float64(mt.total)))
}

// AVGTransportDuration returns the average wait per input step, divided by
// the number of goroutines of the step.
func (mt *DefaultMetric) AVGTransportDuration() map[string]TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[string]TransportInfo, len(mt.allTransports))
	for name, ch := range mt.allTransports {
		info := TransportInfo{Total: ch.total}
		if ch.total > 0 {
			info.Elapsed = round(time.Duration(float64(ch.elapsed) / float64(ch.total) / float64(mt.concurrent)))
		}
		res[name] = info
	}

	return res
}

// AllTransports returns the cumulated wait per input step.
func (mt *DefaultMetric) AllTransports() map[string]TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[string]TransportInfo, len(mt.allTransports))
	for name, ch := range mt.allTransports {
		res[name] = TransportInfo{Elapsed: ch.elapsed, Total: ch.total}
	}

	return res
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
