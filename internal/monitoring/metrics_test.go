package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.RecordPrediction(true)
	m.RecordPrediction(false)
	m.RecordPrediction(false)
	m.RecordBatchPrediction(4, 3, 1)
	m.RecordResponseTime(200 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["total_requests"])
	assert.Equal(t, int64(3), snap["total_predictions"])
	assert.Equal(t, int64(4), snap["total_batch_predictions"])
	assert.Equal(t, int64(4), snap["approved_count"])
	assert.Equal(t, int64(3), snap["rejected_count"])
	assert.Equal(t, int64(1), snap["error_count"])

	// 4 approved of 7 decisions.
	assert.InDelta(t, 400.0/7.0, snap["approval_rate_percent"].(float64), 1e-9)
	// 200ms over 2 requests.
	assert.InDelta(t, 0.1, snap["avg_response_time_seconds"].(float64), 1e-9)
}

func TestMetricsSnapshotEmpty(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()

	assert.Equal(t, int64(0), snap["total_requests"])
	assert.Equal(t, 0.0, snap["approval_rate_percent"])
	assert.Equal(t, 0.0, snap["avg_response_time_seconds"])
	assert.NotEmpty(t, snap["start_time"])
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.RecordPrediction(true)

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, int64(0), snap["total_requests"])
	assert.Equal(t, int64(0), snap["total_predictions"])
	assert.Equal(t, int64(0), snap["approved_count"])
}

func TestMetricsConcurrentAccess(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(approved bool) {
			defer wg.Done()
			m.IncrementRequest()
			m.RecordPrediction(approved)
		}(i%2 == 0)
	}
	wg.Wait()

	snap := m.Snapshot()
	require.Equal(t, int64(50), snap["total_requests"])
	assert.Equal(t, int64(50), snap["total_predictions"])
	assert.Equal(t, int64(25), snap["approved_count"])
	assert.Equal(t, int64(25), snap["rejected_count"])
}
