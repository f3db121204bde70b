package limiter

import (
	"sync"
	"testing"
	"time"
)

func TestAdmissionSlotCeiling(t *testing.T) {
	a := NewAdmission(2, 100, time.Minute)

	if !a.TryAcquire() || !a.TryAcquire() {
		t.Fatal("first two acquisitions must succeed")
	}
	if a.TryAcquire() {
		t.Fatal("third acquisition must be deferred at ceiling 2")
	}

	a.Release()
	if !a.TryAcquire() {
		t.Fatal("acquisition must succeed after a release")
	}
}

func TestAdmissionRateWindow(t *testing.T) {
	a := NewAdmission(100, 3, time.Minute)
	fake := time.Now()
	a.now = func() time.Time { return fake }

	for i := 0; i < 3; i++ {
		if !a.TryAcquire() {
			t.Fatalf("acquisition %d within rate budget must succeed", i)
		}
		a.Release()
	}
	if a.TryAcquire() {
		t.Fatal("fourth request inside the window must be deferred")
	}

	// The window slides: budget returns after it passes.
	fake = fake.Add(61 * time.Second)
	if !a.TryAcquire() {
		t.Fatal("request after the window must succeed")
	}
}

func TestAdmissionConcurrentNeverExceedsCeiling(t *testing.T) {
	const ceiling = 5
	a := NewAdmission(ceiling, 10_000, time.Minute)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 1000)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if a.TryAcquire() {
					granted <- struct{}{}
				}
			}
		}()
	}
	wg.Wait()
	close(granted)

	held := 0
	for range granted {
		held++
	}
	if held > ceiling {
		t.Fatalf("%d slots granted concurrently, ceiling is %d", held, ceiling)
	}
	snap := a.Snapshot()
	if snap.InFlight != held {
		t.Fatalf("snapshot in-flight = %d, want %d", snap.InFlight, held)
	}
}

func TestAdmissionSnapshotAdvisory(t *testing.T) {
	a := NewAdmission(4, 10, time.Minute)
	a.TryAcquire()

	snap := a.Snapshot()
	if snap.MaxConcurrent != 4 || snap.InFlight != 1 || snap.AvailableSlots != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.WindowRequests != 1 || snap.RateLimit != 10 {
		t.Fatalf("unexpected window counters: %+v", snap)
	}
}

func TestAdmissionCancelRefundsRateBudget(t *testing.T) {
	a := NewAdmission(4, 5, time.Minute)

	// Acquisitions that admit nothing hand everything back.
	for i := 0; i < 5; i++ {
		if !a.TryAcquire() {
			t.Fatalf("idle acquisition %d must succeed", i)
		}
		a.Cancel()
	}
	snap := a.Snapshot()
	if snap.InFlight != 0 || snap.WindowRequests != 0 {
		t.Fatalf("after idle cycles: in-flight=%d window=%d, want 0/0", snap.InFlight, snap.WindowRequests)
	}

	// The full budget is still there for real work.
	for i := 0; i < 4; i++ {
		if !a.TryAcquire() {
			t.Fatalf("real acquisition %d denied after idle cycles", i)
		}
	}
}

func TestAdmissionReleaseKeepsRateBudgetSpent(t *testing.T) {
	a := NewAdmission(4, 2, time.Minute)

	a.TryAcquire()
	a.Release()
	a.TryAcquire()
	a.Release()

	// Budget spent on completed work does not come back with the slot.
	if a.TryAcquire() {
		t.Fatal("third request inside the window must be deferred")
	}
	if snap := a.Snapshot(); snap.InFlight != 0 || snap.WindowRequests != 2 {
		t.Fatalf("snapshot = %+v, want 0 in-flight, 2 window entries", snap)
	}
}

func TestAdmissionCancelNeverGoesNegative(t *testing.T) {
	a := NewAdmission(1, 10, time.Minute)
	a.Cancel()
	a.Cancel()
	if snap := a.Snapshot(); snap.InFlight != 0 || snap.WindowRequests != 0 {
		t.Fatalf("snapshot = %+v, want zeroed counters", snap)
	}
}

func TestAdmissionReleaseNeverGoesNegative(t *testing.T) {
	a := NewAdmission(1, 10, time.Minute)
	a.Release()
	a.Release()
	if snap := a.Snapshot(); snap.InFlight != 0 {
		t.Fatalf("in-flight = %d, want 0", snap.InFlight)
	}
}
