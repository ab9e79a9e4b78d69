package application

import (
	"sync/atomic"
	"time"
)

type Stats struct {
	adsAttempted   atomic.Int64
	adsSucceeded   atomic.Int64
	batchesAborted atomic.Int64
	disconnects    atomic.Int64
	restarts       atomic.Int64
	tapsSent       atomic.Int64
	tapsSkipped    atomic.Int64
}

type Summary struct {
	StartedAt      time.Time
	Elapsed        time.Duration
	Server         string
	State          string
	Player         string
	Points         int64
	HasPoints      bool
	TapsSent       int64
	TapsSkipped    int64
	AdsAttempted   int64
	AdsSucceeded   int64
	BatchesAborted int64
	Disconnects    int64
	Restarts       int64
}

func (s *Stats) fill(summary *Summary) {
	summary.AdsAttempted = s.adsAttempted.Load()
	summary.AdsSucceeded = s.adsSucceeded.Load()
	summary.BatchesAborted = s.batchesAborted.Load()
	summary.Disconnects = s.disconnects.Load()
	summary.Restarts = s.restarts.Load()
	summary.TapsSent = s.tapsSent.Load()
	summary.TapsSkipped = s.tapsSkipped.Load()
}
