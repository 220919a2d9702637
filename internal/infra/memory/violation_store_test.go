package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestViolationIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewViolationStore()
	at := time.Now()

	count, err := store.Increment(ctx, "p1", "tab_switch", "agent-1", at)
	if err != nil || count != 1 {
		t.Fatalf("first increment: count=%d err=%v", count, err)
	}
	count, err = store.Increment(ctx, "p1", "fullscreen_exit", "agent-2", at.Add(time.Second))
	if err != nil || count != 2 {
		t.Fatalf("second increment: count=%d err=%v", count, err)
	}

	record, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Count != 2 || record.LastType != "fullscreen_exit" {
		t.Fatalf("unexpected record: %+v", record)
	}
	// Device info sticks to the first report.
	if record.DeviceInfo != "agent-1" {
		t.Fatalf("device info overwritten: %q", record.DeviceInfo)
	}
}

func TestViolationGetMissingIsZero(t *testing.T) {
	record, err := NewViolationStore().Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Count != 0 {
		t.Fatalf("expected zero count, got %d", record.Count)
	}
}

func TestViolationConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewViolationStore()

	const reports = 50
	var wg sync.WaitGroup
	for i := 0; i < reports; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, "p1", "tab_switch", "", time.Now()); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	record, _ := store.Get(ctx, "p1")
	if record.Count != reports {
		t.Fatalf("lost updates: count=%d, want %d", record.Count, reports)
	}
}
