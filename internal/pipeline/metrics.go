package pipeline

import (
	"sync"
	"time"
)

// BuildMetrics tracks build counts and durations across rebuilds.
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	LastIconCount    int
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records a build result in the metrics
func (bm *BuildMetrics) RecordBuild(result BuildResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds++
	bm.TotalDuration += result.Duration

	if result.Error != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
		bm.LastIconCount = result.Icons
	}

	if bm.TotalBuilds > 0 {
		bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)
	}
}

// GetSnapshot returns a copy of the current metrics.
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		LastIconCount:    bm.LastIconCount,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
	}
}

// GetSuccessRate returns the success rate as a percentage
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulBuilds) / float64(bm.TotalBuilds) * 100.0
}
