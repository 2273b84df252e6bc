package util

import (
	"context"
	"testing"
	"time"
)

func TestThrottle(t *testing.T) {
	th := NewThrottle(100 * time.Millisecond)

	if !th.Allow() {
		t.Error("expected first event to be allowed")
	}
	if th.Allow() {
		t.Error("expected second event within the interval to be rejected")
	}

	time.Sleep(150 * time.Millisecond)
	if !th.Allow() {
		t.Error("expected event to be allowed after the interval")
	}
}

func TestThrottle_Disabled(t *testing.T) {
	th := NewThrottle(0)
	for i := 0; i < 5; i++ {
		if !th.Allow() {
			t.Fatalf("event %d rejected by a disabled throttle", i)
		}
	}
}

func TestThrottle_Wait(t *testing.T) {
	th := NewThrottle(30 * time.Millisecond)
	th.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := th.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Wait returned too early")
	}
}

func TestThrottle_WaitCanceled(t *testing.T) {
	th := NewThrottle(time.Hour)
	th.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := th.Wait(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
