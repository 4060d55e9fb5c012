package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewTokenBucketStartsFull(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(10, 1)
	if tb.tokens != 10 {
		t.Errorf("tokens = %v, want 10", tb.tokens)
	}
}

func TestTokenBucketWaitImmediate(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(5, 1)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := tb.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() returned error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("Wait() took %v, expected immediate (token %d)", elapsed, i)
		}
	}
}

func TestTokenBucketWaitBlocks(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(1, 10)

	if err := tb.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("expected blocking ~100ms, got %v", elapsed)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("blocked too long: %v", elapsed)
	}
}

func TestTokenBucketContextCancelled(t *testing.T) {
	t.Parallel()
	tb := NewTokenBucket(1, 0.1)

	_ = tb.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err == nil {
		t.Error("expected context error, got nil")
	}
}

func TestLimiterExposesThreeIndependentClasses(t *testing.T) {
	t.Parallel()
	l := New(Config{
		SubmitCapacity: 5, SubmitRate: 1,
		CancelCapacity: 3, CancelRate: 1,
		ReadCapacity: 10, ReadRate: 1,
	})

	if err := l.Submit.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Cancel.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := l.Read.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if l.Cancel.capacity != 3 || l.Submit.capacity != 5 || l.Read.capacity != 10 {
		t.Errorf("bucket capacities not independently configured: cancel=%v submit=%v read=%v",
			l.Cancel.capacity, l.Submit.capacity, l.Read.capacity)
	}
}
