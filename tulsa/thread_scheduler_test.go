package tulsa

import (
	"sync/atomic"
	"testing"
	"time"
)

func counterWork(counter *int64) func() {
	return func() {
		atomic.AddInt64(counter, 1)
	}
}

func TestThreadSchedulerLifecycle(t *testing.T) {
	sched := NewThreadScheduler(nil)

	var count int64
	sched.Handle(NewSyncCreate(2, 100*time.Millisecond, counterWork(&count)))
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sched.Len())
	}

	time.Sleep(550 * time.Millisecond)
	// Work runs immediately at T=0, then at 100,200,300,400,500ms: 6 calls.
	if got := atomic.LoadInt64(&count); got != 6 {
		t.Fatalf("count after 550ms = %d, want 6", got)
	}

	sched.Handle(NewSyncStop(2))
	if sched.Len() != 0 {
		t.Fatalf("Len() after stop = %d, want 0", sched.Len())
	}

	settled := atomic.LoadInt64(&count)
	time.Sleep(550 * time.Millisecond)
	if got := atomic.LoadInt64(&count); got != settled {
		t.Fatalf("count kept incrementing after Delete: was %d, now %d", settled, got)
	}
}

func TestThreadSchedulerUpdateReplaces(t *testing.T) {
	sched := NewThreadScheduler(nil)

	var a, b int64
	sched.Handle(NewSyncCreate(3, 200*time.Millisecond, counterWork(&a)))
	time.Sleep(250 * time.Millisecond)

	sched.Handle(NewSyncUpdate(3, 50*time.Millisecond, counterWork(&b)))
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

func TestThreadSchedulerDeleteUnknownIDIsNoop(t *testing.T) {
	sched := NewThreadScheduler(nil)
	sched.Handle(NewSyncStop(999))
	if sched.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", sched.Len())
	}
}

func TestThreadSchedulerBurstLeavesOneExecution(t *testing.T) {
	sched := NewThreadScheduler(nil)

	var count int64
	work := counterWork(&count)
	sched.Handle(NewSyncCreate(4, time.Hour, work))
	sched.Handle(NewSyncStop(4))
	sched.Handle(NewSyncCreate(4, time.Hour, work))

	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after create/delete/create burst", sched.Len())
	}
}

func TestThreadSchedulerUpdateOnUnknownIDCreates(t *testing.T) {
	sched := NewThreadScheduler(nil)

	var count int64
	sched.Handle(NewSyncUpdate(7, 50*time.Millisecond, counterWork(&count)))
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sched.Len())
	}
	time.Sleep(120 * time.Millisecond)
	if atomic.LoadInt64(&count) == 0 {
		t.Fatal("task created via Update on an unknown id never ran")
	}
	sched.Handle(NewSyncStop(7))
}

func TestThreadSchedulerRecoversFromPanickingWork(t *testing.T) {
	sched := NewThreadScheduler(nil)

	var count int64
	sched.Handle(NewSyncCreate(8, 30*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
		panic("boom")
	}))

	time.Sleep(150 * time.Millisecond)
	if atomic.LoadInt64(&count) < 2 {
		t.Fatalf("runner stopped looping after a panic: count=%d", atomic.LoadInt64(&count))
	}
	if sched.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (runner stays until Delete)", sched.Len())
	}
	sched.Handle(NewSyncStop(8))
	if sched.Len() != 0 {
		t.Fatalf("Len() after Delete = %d, want 0", sched.Len())
	}
}
