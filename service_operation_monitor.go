package managehub

import (
	"sync"
	"time"
)

// OperationMetrics provides engine operation performance and failure
// statistics, aggregated across all public entry points.
type OperationMetrics struct {
	TotalOperations      int64            `json:"total_operations"`
	SuccessfulOperations int64            `json:"successful_operations"`
	FailedOperations     int64            `json:"failed_operations"`
	AverageDuration      time.Duration    `json:"average_duration"`
	MaxDuration          time.Duration    `json:"max_duration"`
	MinDuration          time.Duration    `json:"min_duration"`
	PerOperation         map[string]int64 `json:"per_operation"`
	LastReset            time.Time        `json:"last_reset"`
}

// operationMonitor holds the internal operation monitoring state.
type operationMonitor struct {
	mu            sync.RWMutex
	totalCount    int64
	successCount  int64
	failureCount  int64
	totalDuration int64 // nanoseconds
	maxDuration   int64 // nanoseconds
	minDuration   int64 // nanoseconds
	perOperation  map[string]int64
	lastReset     time.Time
}

func newOperationMonitor() *operationMonitor {
	return &operationMonitor{
		minDuration:  int64(time.Hour), // Initialize to a large value
		perOperation: make(map[string]int64),
		lastReset:    time.Now(),
	}
}

// recordOperation records one completed entry point with its duration and
// success status.
func (om *operationMonitor) recordOperation(op string, duration time.Duration, success bool) {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.totalCount++
	om.totalDuration += int64(duration)
	om.perOperation[op]++

	if success {
		om.successCount++
	} else {
		om.failureCount++
	}

	durationNs := int64(duration)
	if durationNs > om.maxDuration {
		om.maxDuration = durationNs
	}
	if durationNs < om.minDuration {
		om.minDuration = durationNs
	}
}

// getMetrics returns the current operation metrics.
func (om *operationMonitor) getMetrics() OperationMetrics {
	om.mu.RLock()
	defer om.mu.RUnlock()

	var avgDuration time.Duration
	if om.totalCount > 0 {
		avgDuration = time.Duration(om.totalDuration / om.totalCount)
	}

	perOp := make(map[string]int64, len(om.perOperation))
	for k, v := range om.perOperation {
		perOp[k] = v
	}

	return OperationMetrics{
		TotalOperations:      om.totalCount,
		SuccessfulOperations: om.successCount,
		FailedOperations:     om.failureCount,
		AverageDuration:      avgDuration,
		MaxDuration:          time.Duration(om.maxDuration),
		MinDuration:          time.Duration(om.minDuration),
		PerOperation:         perOp,
		LastReset:            om.lastReset,
	}
}

// reset resets all metrics.
func (om *operationMonitor) reset() {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.totalCount = 0
	om.successCount = 0
	om.failureCount = 0
	om.totalDuration = 0
	om.maxDuration = 0
	om.minDuration = int64(time.Hour)
	om.perOperation = make(map[string]int64)
	om.lastReset = time.Now()
}
