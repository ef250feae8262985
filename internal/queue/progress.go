package queue

import (
	"context"
	"time"
)

// Reporter publishes progress for one job. Authoritative values go through
// Set; long stages can run a cosmetic estimator between checkpoints.
type Reporter struct {
	q     *Queue
	jobID string
}

// Progress returns a Reporter bound to jobID.
func (q *Queue) Progress(jobID string) *Reporter {
	return &Reporter{q: q, jobID: jobID}
}

// Set writes an authoritative progress value and message. Progress never
// moves backwards, so a stale estimate can never override a checkpoint.
func (r *Reporter) Set(pct int, message string) {
	_, _ = r.q.Update(context.Background(), r.jobID,
		WithProgress(pct), WithProgressMessage(message))
}

// StartEstimate launches a periodic estimator that interpolates progress
// from base towards ceiling against a fixed duration estimate. It is purely
// cosmetic and never reaches past ceiling, leaving headroom for the next
// stage. The returned stop function halts the ticker and joins it; callers
// must stop before writing the stage's own authoritative value.
func (r *Reporter) StartEstimate(base, ceiling int, estimate time.Duration, message string) (stop func()) {
	stopCh := make(chan struct{})
	done := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.q.estimateTick)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				frac := float64(time.Since(start)) / float64(estimate)
				if frac > 1 {
					frac = 1
				}
				pct := base + int(float64(ceiling-base)*frac)
				if pct > ceiling {
					pct = ceiling
				}
				r.Set(pct, message)
			}
		}
	}()

	return func() {
		close(stopCh)
		<-done
	}
}
