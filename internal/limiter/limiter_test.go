package limiter

import (
	"context"
	"testing"
	"time"
)

func TestSlots(t *testing.T) {
	t.Run("acquire_up_to_capacity", func(t *testing.T) {
		s := NewSlots(2)
		if err := s.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := s.Acquire(context.Background()); err != nil {
			t.Fatal(err)
		}
		if s.TryAcquire() {
			t.Fatal("third acquire should fail with capacity 2")
		}
		s.Release()
		if !s.TryAcquire() {
			t.Fatal("acquire should succeed after release")
		}
	})

	t.Run("acquire_honors_context_cancel", func(t *testing.T) {
		s := NewSlots(1)
		if !s.TryAcquire() {
			t.Fatal("first acquire failed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := s.Acquire(ctx); err == nil {
			t.Fatal("expected context error while pool is full")
		}
	})

	t.Run("zero_capacity_is_clamped_to_one", func(t *testing.T) {
		s := NewSlots(0)
		if !s.TryAcquire() {
			t.Fatal("expected one usable slot")
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks_after_limit_within_window", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			allowed, _, _ := rl.Allow("10.0.0.1")
			if !allowed {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		allowed, remaining, _ := rl.Allow("10.0.0.1")
		if allowed {
			t.Fatal("fourth request should be blocked")
		}
		if remaining != 0 {
			t.Errorf("remaining = %d, want 0", remaining)
		}
	})

	t.Run("clients_are_independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		if allowed, _, _ := rl.Allow("a"); !allowed {
			t.Fatal("client a should be allowed")
		}
		if allowed, _, _ := rl.Allow("b"); !allowed {
			t.Fatal("client b should be allowed")
		}
		if allowed, _, _ := rl.Allow("a"); allowed {
			t.Fatal("client a second request should be blocked")
		}
	})

	t.Run("window_expiry_resets_count", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		now := time.Unix(1_700_000_000, 0)
		rl.now = func() time.Time { return now }

		if allowed, _, _ := rl.Allow("c"); !allowed {
			t.Fatal("first request should be allowed")
		}
		if allowed, _, _ := rl.Allow("c"); allowed {
			t.Fatal("second request should be blocked")
		}

		now = now.Add(61 * time.Second)
		if allowed, _, _ := rl.Allow("c"); !allowed {
			t.Fatal("request after window expiry should be allowed")
		}
	})

	t.Run("expired_clients_are_swept", func(t *testing.T) {
		rl := NewRateLimiter(100, time.Minute)
		now := time.Unix(1_700_000_000, 0)
		rl.now = func() time.Time { return now }

		for _, c := range []string{"a", "b", "c"} {
			rl.Allow(c)
		}
		now = now.Add(2 * time.Minute)
		rl.Allow("d") // sweeps the expired entries

		rl.mu.Lock()
		n := len(rl.clients)
		rl.mu.Unlock()
		if n != 1 {
			t.Errorf("client map holds %d entries, want 1", n)
		}
	})

	t.Run("remaining_counts_down", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		_, r1, _ := rl.Allow("x")
		_, r2, _ := rl.Allow("x")
		if r1 != 2 || r2 != 1 {
			t.Errorf("remaining = %d, %d, want 2, 1", r1, r2)
		}
	})
}
