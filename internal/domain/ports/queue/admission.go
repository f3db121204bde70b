package queue

import "time"

// Snapshot is an advisory view of the admission controller's counters.
// It is race-prone by design: consumers must not treat it as a reservation.
type Snapshot struct {
	InFlight       int
	MaxConcurrent  int
	AvailableSlots int
	WindowRequests int
	RateLimit      int
	RateWindow     time.Duration
}

// Admission bounds global job dispatch: a fixed ceiling of concurrently
// executing jobs plus a sliding-window request-rate ceiling. TryAcquire
// is a single serialized check-and-increment over both; two concurrent
// calls can never both succeed past a ceiling.
//
// Release returns only the slot after a job ran: the rate budget stays
// spent. Cancel returns the slot and the window entry; callers use it
// when an acquisition turned out to admit nothing, so empty dispatch
// ticks do not drain the rate budget.
type Admission interface {
	TryAcquire() bool
	Release()
	Cancel()
	Snapshot() Snapshot
}
