package limiter

import (
	"sync"
	"time"

	"classroom-ai-platform/internal/domain/ports/queue"
)

// Compile-time check
var _ queue.Admission = (*Admission)(nil)

// Admission is the process-wide admission controller. All decisions go
// through one mutex so a slot check and its increment are a single
// serialized step. Swap this for a distributed counter by implementing
// queue.Admission elsewhere; the queue only sees the interface.
type Admission struct {
	mu            sync.Mutex
	inFlight      int
	maxConcurrent int
	rateLimit     int
	rateWindow    time.Duration
	recent        []time.Time // acquisition times inside the sliding window
	now           func() time.Time
}

func NewAdmission(maxConcurrent, rateLimit int, rateWindow time.Duration) *Admission {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if rateLimit <= 0 {
		rateLimit = 60
	}
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}
	return &Admission{
		maxConcurrent: maxConcurrent,
		rateLimit:     rateLimit,
		rateWindow:    rateWindow,
		now:           time.Now,
	}
}

// TryAcquire admits one dispatch if both a free slot and rate budget
// exist. Over-capacity is not an error: the caller leaves the job
// pending and retries on the next tick or slot release.
func (a *Admission) TryAcquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prune(a.now())
	if a.inFlight >= a.maxConcurrent {
		return false
	}
	if len(a.recent) >= a.rateLimit {
		return false
	}
	a.inFlight++
	a.recent = append(a.recent, a.now())
	return true
}

// Release frees the slot taken by TryAcquire. Rate budget is not
// returned; the window expires on its own.
func (a *Admission) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight > 0 {
		a.inFlight--
	}
}

// Cancel undoes a TryAcquire that admitted nothing: the slot comes back
// and the newest window entry is dropped. Without the refund, empty
// dispatch ticks would pin the window at the limit and a job enqueued
// after an idle stretch would wait for phantom entries to age out.
func (a *Admission) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight > 0 {
		a.inFlight--
	}
	if n := len(a.recent); n > 0 {
		a.recent = a.recent[:n-1]
	}
}

// Snapshot returns advisory counters for dashboards and the
// rate-limit-status endpoint.
func (a *Admission) Snapshot() queue.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prune(a.now())
	return queue.Snapshot{
		InFlight:       a.inFlight,
		MaxConcurrent:  a.maxConcurrent,
		AvailableSlots: a.maxConcurrent - a.inFlight,
		WindowRequests: len(a.recent),
		RateLimit:      a.rateLimit,
		RateWindow:     a.rateWindow,
	}
}

// prune drops window entries older than rateWindow. Callers hold a.mu.
func (a *Admission) prune(now time.Time) {
	cutoff := now.Add(-a.rateWindow)
	i := 0
	for i < len(a.recent) && !a.recent[i].After(cutoff) {
		i++
	}
	if i > 0 {
		a.recent = append(a.recent[:0], a.recent[i:]...)
	}
}
