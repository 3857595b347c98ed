package monitoring

import (
	"sync/atomic"
	"time"
)

// Metrics is the injected observability collector for the serving
// layer. It is created once at process start and read through Snapshot;
// the prediction core itself never touches it. All counters use atomic
// increments so concurrent request handlers need no locking.
type Metrics struct {
	RequestCount         int64
	PredictionCount      int64
	BatchPredictionCount int64
	ApprovedCount        int64
	RejectedCount        int64
	ErrorCount           int64
	TotalResponseTimeNs  int64
	StartTime            time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime: time.Now(),
	}
}

// IncrementRequest increments the request count.
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count.
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// RecordResponseTime accumulates response time for averaging.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	atomic.AddInt64(&m.TotalResponseTimeNs, duration.Nanoseconds())
}

// RecordPrediction records one single-row prediction outcome.
func (m *Metrics) RecordPrediction(approved bool) {
	atomic.AddInt64(&m.PredictionCount, 1)
	if approved {
		atomic.AddInt64(&m.ApprovedCount, 1)
	} else {
		atomic.AddInt64(&m.RejectedCount, 1)
	}
}

// RecordBatchPrediction records the outcome counts of one batch call.
func (m *Metrics) RecordBatchPrediction(total, approved, rejected int) {
	atomic.AddInt64(&m.BatchPredictionCount, int64(total))
	atomic.AddInt64(&m.ApprovedCount, int64(approved))
	atomic.AddInt64(&m.RejectedCount, int64(rejected))
}

// Snapshot returns the current statistics as a flat map ready for the
// metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	predictions := atomic.LoadInt64(&m.PredictionCount)
	batchPredictions := atomic.LoadInt64(&m.BatchPredictionCount)
	approved := atomic.LoadInt64(&m.ApprovedCount)
	rejected := atomic.LoadInt64(&m.RejectedCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	totalResponseNs := atomic.LoadInt64(&m.TotalResponseTimeNs)

	avgResponseSeconds := float64(0)
	if requests > 0 {
		avgResponseSeconds = float64(totalResponseNs) / float64(requests) / 1e9
	}

	approvalRate := float64(0)
	if decisions := approved + rejected; decisions > 0 {
		approvalRate = float64(approved) / float64(decisions) * 100
	}

	uptime := time.Since(m.StartTime).Seconds()
	requestsPerMinute := float64(0)
	if uptime > 0 {
		requestsPerMinute = float64(requests) / (uptime / 60)
	}

	return map[string]interface{}{
		"uptime_seconds":            uptime,
		"total_requests":            requests,
		"total_predictions":         predictions,
		"total_batch_predictions":   batchPredictions,
		"approved_count":            approved,
		"rejected_count":            rejected,
		"approval_rate_percent":     approvalRate,
		"error_count":               errors,
		"avg_response_time_seconds": avgResponseSeconds,
		"requests_per_minute":       requestsPerMinute,
		"start_time":                m.StartTime.Format(time.RFC3339),
	}
}

// Reset resets all counters (useful for testing).
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.PredictionCount, 0)
	atomic.StoreInt64(&m.BatchPredictionCount, 0)
	atomic.StoreInt64(&m.ApprovedCount, 0)
	atomic.StoreInt64(&m.RejectedCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.TotalResponseTimeNs, 0)
	m.StartTime = time.Now()
}
