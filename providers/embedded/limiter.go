package embedded

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendLimiter is a token bucket per email address.
type sendLimiter struct {
	mu       sync.Mutex
	every    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newSendLimiter(every rate.Limit, burst int) *sendLimiter {
	return &sendLimiter{
		every:    every,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *sendLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) > 10_000 {
			l.prune(now)
		}
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.AllowN(now, 1)
}

// prune drops buckets that have refilled completely. Caller holds mu.
func (l *sendLimiter) prune(now time.Time) {
	for key, limiter := range l.limiters {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}
