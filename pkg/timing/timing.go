// Package timing implements the lightweight duration predictor used for
// progress estimation, grounded on the teacher's
// internal/timing.AddFileProcessingTime/PredictFileProcessingTime pair and
// the PredictProjectProcessTime/AddProcessTime calls in
// internal/queue/preprocess.go and process.go. Unlike the teacher, which
// persists samples in Postgres keyed only by stat_type (predictions are
// global across projects, never scoped by project_id despite the name),
// this keeps the rolling average in-process: the estimate is advisory and
// never gates correctness (§5), so losing it across a worker restart is
// acceptable.
package timing

import "sync"

// alpha is the exponential-moving-average smoothing factor: higher weighs
// recent samples more heavily. 0.3 mirrors a ~3-sample effective window.
const alpha = 0.3

// Recorder tracks a per-stat_type moving average of milliseconds-per-unit
// duration and predicts future durations from it.
type Recorder struct {
	mu    sync.Mutex
	rates map[string]float64 // stat_type -> ms per unit amount
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{rates: make(map[string]float64)}
}

// AddProcessTime records that amount units of statType work took durationMs
// milliseconds, folding it into the moving average for statType.
func (r *Recorder) AddProcessTime(statType string, amount int64, durationMs int64) {
	if amount <= 0 {
		return
	}
	sampleRate := float64(durationMs) / float64(amount)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rates[statType]
	if !ok {
		r.rates[statType] = sampleRate
		return
	}
	r.rates[statType] = existing*(1-alpha) + sampleRate*alpha
}

// PredictProcessTime estimates the duration in milliseconds for amount units
// of statType work, based on the current moving average. Returns 0 if no
// samples have been recorded yet for statType.
func (r *Recorder) PredictProcessTime(statType string, amount int64) int64 {
	if amount <= 0 {
		return 0
	}

	r.mu.Lock()
	rate, ok := r.rates[statType]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	return int64(rate * float64(amount))
}
