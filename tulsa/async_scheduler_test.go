package tulsa

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func tickerTask(counter *int64, period time.Duration) func(context.Context) {
	return func(ctx context.Context) {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				atomic.AddInt64(counter, 1)
			}
		}
	}
}

func TestAsyncSchedulerLifecycle(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)

	var count int64
	sched.Handle(NewAsyncCreate(1, tickerTask(&count, 100*time.Millisecond)))
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sched.Len())
	}

	time.Sleep(550 * time.Millisecond)
	if got := atomic.LoadInt64(&count); got != 5 && got != 6 {
		t.Fatalf("count after 550ms = %d, want 5 or 6", got)
	}

	sched.Handle(NewAsyncStop(1))
	if sched.Len() != 0 {
		t.Fatalf("Len() after stop = %d, want 0", sched.Len())
	}

	settled := atomic.LoadInt64(&count)
	time.Sleep(550 * time.Millisecond)
	if got := atomic.LoadInt64(&count); got != settled {
		t.Fatalf("count kept incrementing after Delete: was %d, now %d", settled, got)
	}
}

func TestAsyncSchedulerUpdateReplaces(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)

	var a, b int64
	sched.Handle(NewAsyncCreate(3, tickerTask(&a, 200*time.Millisecond)))
	time.Sleep(250 * time.Millisecond)

	sched.Handle(NewAsyncUpdate(3, tickerTask(&b, 50*time.Millisecond)))
	time.Sleep(250 * time.Millisecond)

	aCount := atomic.LoadInt64(&a)
	bCount := atomic.LoadInt64(&b)
	if aCount > 2 {
		t.Fatalf("old task kept running after Update: a=%d", aCount)
	}
	if bCount < 4 {
		t.Fatalf("new task did not run enough after Update: b=%d", bCount)
	}
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (no duplicate executions)", sched.Len())
	}
}

func TestAsyncSchedulerCreateOnLiveIDActsAsUpdate(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)

	var a, b int64
	sched.Handle(NewAsyncCreate(4, tickerTask(&a, 50*time.Millisecond)))
	sched.Handle(NewAsyncCreate(4, tickerTask(&b, 50*time.Millisecond)))

	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after duplicate Create", sched.Len())
	}

	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt64(&a) > 1 {
		t.Fatalf("first create's task kept running: a=%d", atomic.LoadInt64(&a))
	}
	if atomic.LoadInt64(&b) == 0 {
		t.Fatal("second create's task never ran")
	}
}

func TestAsyncSchedulerDeleteUnknownIDIsNoop(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)
	sched.Handle(NewAsyncStop(999))
	if sched.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", sched.Len())
	}
}

func TestAsyncSchedulerBurstLeavesOneExecution(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)

	var count int64
	work := tickerTask(&count, 20*time.Millisecond)
	sched.Handle(NewAsyncCreate(5, work))
	sched.Handle(NewAsyncStop(5))
	sched.Handle(NewAsyncCreate(5, work))

	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after create/delete/create burst", sched.Len())
	}
}

func TestAsyncSchedulerRecoversFromPanickingTask(t *testing.T) {
	sched := NewAsyncScheduler(1, nil)

	done := make(chan struct{})
	sched.Handle(NewAsyncCreate(6, func(ctx context.Context) {
		defer close(done)
		panic("boom")
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking task never ran")
	}

	// The handle stays in the map until an explicit Delete, even though the
	// goroutine behind it already exited.
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (handle retained until Delete)", sched.Len())
	}
	sched.Handle(NewAsyncStop(6))
	if sched.Len() != 0 {
		t.Fatalf("Len() after Delete = %d, want 0", sched.Len())
	}
}
