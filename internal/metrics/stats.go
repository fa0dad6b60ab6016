package metrics

import "time"

// Window accumulates training throughput across the steps of an epoch.
type Window struct {
	samples int
	compute time.Duration
	steps   int
	lossSum float64
	last    float64
}

// Record adds one training update.
func (w *Window) Record(batchSize int, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.compute += computeTime
	w.steps++
	w.lossSum += loss
	w.last = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, Samples: w.samples, LastLoss: w.last}
	if w.compute > 0 {
		snap.ImagesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.MeanLoss = w.lossSum / float64(w.steps)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps        int
	Samples      int
	ImagesPerSec float64
	AvgComputeMS float64
	MeanLoss     float64
	LastLoss     float64
}
