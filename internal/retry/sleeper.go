package retry

import (
	"context"
	"time"
)

// Sleeper abstracts the wait between retries so tests can run deterministically
// with a recorded fake instead of real delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper waits on the wall clock, honoring context cancellation.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// FakeSleeper records requested delays without waiting. For tests. An
// optional Hook runs on every Sleep, letting a test change the world between
// retry attempts (release a lock, restore a permission).
type FakeSleeper struct {
	Delays []time.Duration
	Hook   func(d time.Duration)
}

func (f *FakeSleeper) Sleep(_ context.Context, d time.Duration) {
	f.Delays = append(f.Delays, d)
	if f.Hook != nil {
		f.Hook(d)
	}
}
