package cronrunner

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"auctionhub/internal/lock"
)

func TestAddNamedSkipsOverlap(t *testing.T) {
	locker := lock.NewMemoryLocker()
	r := New(zap.NewNop(), context.Background(), Options{Locker: locker})

	unlock, ok, _ := locker.TryLock(context.Background(), "cron:scrape_all", time.Minute)
	if !ok {
		t.Fatalf("could not pre-acquire lock")
	}
	calls := 0
	job := func(context.Context) { calls++ }

	r.runNamed("scrape_all", job)
	if calls != 0 {
		t.Fatalf("job ran while its lock was held")
	}
	unlock()
	r.runNamed("scrape_all", job)
	r.runNamed("scrape_all", job)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestAddNamedConcurrentTicks(t *testing.T) {
	r := New(nil, nil, Options{})
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var mu sync.Mutex
	calls := 0
	job := func(context.Context) {
		mu.Lock()
		calls++
		mu.Unlock()
		started <- struct{}{}
		<-release
	}

	done := make(chan struct{})
	go func() {
		r.runNamed("aggregator", job)
		close(done)
	}()
	<-started
	r.runNamed("aggregator", job)
	close(release)
	<-done

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestAddRejectsBadSpec(t *testing.T) {
	r := New(zap.NewNop(), context.Background(), Options{Location: time.UTC})
	if _, err := r.AddNamed("x", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("AddNamed accepted an invalid spec")
	}
	if _, err := r.AddNamed("x", "0 30 0 * * *", func(context.Context) {}); err != nil {
		t.Fatalf("AddNamed(six-field spec): %v", err)
	}
	if r.Entries() != 1 {
		t.Fatalf("Entries() = %d, want 1", r.Entries())
	}
}
