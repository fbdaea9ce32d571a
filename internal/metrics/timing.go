// Package metrics accumulates wall-clock measurements across benchmark runs.
package metrics

import "time"

// Accumulator sums elapsed durations for one precision and keeps every sample
// so the average can be checked against the individual runs.
type Accumulator struct {
	total   time.Duration
	samples []time.Duration
}

// Record adds one measured run.
func (a *Accumulator) Record(d time.Duration) {
	a.total += d
	a.samples = append(a.samples, d)
}

// Count returns the number of recorded runs.
func (a *Accumulator) Count() int { return len(a.samples) }

// Total returns the running sum.
func (a *Accumulator) Total() time.Duration { return a.total }

// Mean returns Total / Count, or 0 with no samples.
func (a *Accumulator) Mean() time.Duration {
	if len(a.samples) == 0 {
		return 0
	}
	return a.total / time.Duration(len(a.samples))
}

// MeanSeconds returns the average in seconds without integer truncation.
func (a *Accumulator) MeanSeconds() float64 {
	if len(a.samples) == 0 {
		return 0
	}
	return a.total.Seconds() / float64(len(a.samples))
}

// Min returns the fastest run, or 0 with no samples.
func (a *Accumulator) Min() time.Duration {
	var out time.Duration
	for i, s := range a.samples {
		if i == 0 || s < out {
			out = s
		}
	}
	return out
}

// Max returns the slowest run.
func (a *Accumulator) Max() time.Duration {
	var out time.Duration
	for _, s := range a.samples {
		out = max(out, s)
	}
	return out
}

// Samples returns a copy of the recorded durations in order.
func (a *Accumulator) Samples() []time.Duration {
	return append([]time.Duration(nil), a.samples...)
}

// Reset discards every sample.
func (a *Accumulator) Reset() {
	a.total = 0
	a.samples = nil
}

// Throughput returns samples processed per second over d.
func Throughput(samples int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(samples) / d.Seconds()
}
