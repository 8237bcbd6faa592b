// Package watch implements the filesystem watcher: mass-change detection,
// git-operation detection, and the debounced reconciler that turns raw
// fsnotify events into reindex batches.
package watch

import (
	"time"
)

// BatchDetector flags mass file changes using a threshold count and a
// trailing rate window, so a `git checkout` that touches thousands of
// files doesn't reindex file-by-file.
type BatchDetector struct {
	thresholdFiles  int
	thresholdRate   float64
	collectionDelay time.Duration
	recentChanges   []time.Time
}

// NewBatchDetector builds a detector. The canonical tuning used by the
// reconciler is NewBatchDetector(50, 20.0, 3*time.Second).
func NewBatchDetector(thresholdFiles int, thresholdRate float64, collectionDelay time.Duration) *BatchDetector {
	return &BatchDetector{
		thresholdFiles:  thresholdFiles,
		thresholdRate:   thresholdRate,
		collectionDelay: collectionDelay,
	}
}

// DetectMassChange reports whether changeCount constitutes a mass-change
// event, either because it alone crosses the threshold or because the
// trailing 10-second rate crosses thresholdRate.
func (d *BatchDetector) DetectMassChange(changeCount int) bool {
	if changeCount >= d.thresholdFiles {
		return true
	}

	now := time.Now()
	for i := 0; i < changeCount; i++ {
		d.recentChanges = append(d.recentChanges, now)
	}

	cutoff := now.Add(-10 * time.Second)
	d.recentChanges = dropBefore(d.recentChanges, cutoff)

	rate := float64(len(d.recentChanges)) / 10.0
	return rate >= d.thresholdRate
}

// CollectionDelay returns the configured delay used to batch changes during
// mass operations before dispatching a reindex.
func (d *BatchDetector) CollectionDelay() time.Duration {
	return d.collectionDelay
}

// Reset clears recorded change history.
func (d *BatchDetector) Reset() {
	d.recentChanges = nil
}

// CurrentRate returns the current trailing-10-second change rate.
func (d *BatchDetector) CurrentRate() float64 {
	if len(d.recentChanges) == 0 {
		return 0
	}
	cutoff := time.Now().Add(-10 * time.Second)
	count := 0
	for _, t := range d.recentChanges {
		if !t.Before(cutoff) {
			count++
		}
	}
	return float64(count) / 10.0
}

func dropBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}
