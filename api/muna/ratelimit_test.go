package muna

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/morikuni/failure/v2"
)

func TestRateLimiterBackoff(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})
	r.Backoff(50 * time.Millisecond)

	start := time.Now()
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least the backoff", elapsed)
	}

	// backoff has passed
	start = time.Now()
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Wait() took %v after the backoff expired", elapsed)
	}
}

func TestRateLimiterBackoffKeepsLongest(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})
	r.Backoff(time.Hour)
	r.Backoff(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestClientHonoursRetryAfter(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"message":"Slow down"}]}`))
	})

	_, err := c.RetrievePredictor(context.Background(), "@fxn/greeting")
	if !failure.Is(err, ErrRateLimited) {
		t.Fatalf("first request error = %v, want %v", err, ErrRateLimited)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.RetrievePredictor(ctx, "@fxn/greeting")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second request error = %v, want %v", err, context.DeadlineExceeded)
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("second request returned after %v, want it to stop at the context deadline", elapsed)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}
