package engine

import (
	"context"
	"time"
)

// Clock abstracts wall time so the loop can be driven deterministically
// in tests.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, whichever is first.
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) {
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

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
