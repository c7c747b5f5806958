// Package limiter bounds concurrent heavy work and per-client request
// rates. Audio transcription, extraction, and PDF rendering each get a
// fixed slot pool so a burst of uploads cannot exhaust ffmpeg or the
// model backends.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Slots is a counting semaphore for one workload class.
type Slots struct {
	ch chan struct{}
}

// NewSlots creates a pool with n concurrent slots. n < 1 is treated as 1.
func NewSlots(n int) *Slots {
	if n < 1 {
		n = 1
	}
	return &Slots{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is done.
func (s *Slots) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking.
func (s *Slots) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
func (s *Slots) Release() {
	select {
	case <-s.ch:
	default:
	}
}

// InUse reports how many slots are currently held.
func (s *Slots) InUse() int { return len(s.ch) }

// RateLimiter tracks request counts per client within a sliding window.
// Entries reset when their window expires, so memory stays bounded by
// the number of distinct clients active in one window.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
	now     func() time.Time
}

type clientWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Allow records one request for the client and reports whether it is
// within the limit. Remaining and the window reset time come back for
// rate-limit response headers.
func (r *RateLimiter) Allow(client string) (allowed bool, remaining int, resetAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cw, ok := r.clients[client]
	if !ok || now.After(cw.resetAt) {
		cw = &clientWindow{resetAt: now.Add(r.window)}
		r.clients[client] = cw
		r.sweep(now)
	}

	if cw.count >= r.limit {
		return false, 0, cw.resetAt
	}
	cw.count++
	return true, r.limit - cw.count, cw.resetAt
}

// sweep drops expired client entries. Called with the lock held.
func (r *RateLimiter) sweep(now time.Time) {
	for client, cw := range r.clients {
		if now.After(cw.resetAt) {
			delete(r.clients, client)
		}
	}
}
