package fetch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// hostLimiter spaces requests to the same host.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newHostLimiter(limit rate.Limit, burst int) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || h.limit == rate.Inf {
		return nil
	}

	h.mu.Lock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = l
	}
	h.mu.Unlock()

	return l.Wait(ctx)
}
