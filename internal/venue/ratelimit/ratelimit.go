// Package ratelimit implements a continuous-refill token-bucket limiter
// per endpoint class (Submit, Cancel, Read), shared by every venue client.
// Refill is smooth rather than bursty. The bucket is a single
// mutex-guarded counter, not a queue: blocked waiters sleep and re-check,
// and whichever caller checks first after a token frees up takes it.
// Waiters are therefore not served in arrival order, and a new caller can
// take a token ahead of one that is already blocked.
//
// Grounded on the teacher's internal/exchange/ratelimit.go TokenBucket
// almost unchanged, generalized from Polymarket-specific Order/Cancel/Book
// naming to the venue-agnostic Submit/Cancel/Read classes spec.md §4.E
// names.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a continuous-refill token-bucket rate limiter.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	lastTime time.Time
}

// NewTokenBucket creates a bucket with the given burst capacity and
// refill rate in tokens per second.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Limiter groups token buckets by endpoint class. Every venue client
// holds one Limiter and calls the relevant bucket's Wait before issuing
// the corresponding request.
type Limiter struct {
	Submit *TokenBucket // order placement
	Cancel *TokenBucket // order cancellation
	Read   *TokenBucket // book/balance/position reads
}

// Config tunes each class's burst capacity and refill rate.
type Config struct {
	SubmitCapacity, SubmitRate float64
	CancelCapacity, CancelRate float64
	ReadCapacity, ReadRate     float64
}

// New creates a Limiter from Config.
func New(cfg Config) *Limiter {
	return &Limiter{
		Submit: NewTokenBucket(cfg.SubmitCapacity, cfg.SubmitRate),
		Cancel: NewTokenBucket(cfg.CancelCapacity, cfg.CancelRate),
		Read:   NewTokenBucket(cfg.ReadCapacity, cfg.ReadRate),
	}
}
