package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedChats caps the number of tracked limiter keys to prevent
// memory exhaustion from a flood of distinct chat ids.
const maxTrackedChats = 4096

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChatRateLimiter is a token bucket per chat id.
// Safe for concurrent use.
type ChatRateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	entries map[int64]*chatLimiter
	now     func() time.Time
}

// NewChatRateLimiter allows perMinute updates per chat with the given burst.
// perMinute <= 0 returns nil; a nil limiter allows everything.
func NewChatRateLimiter(perMinute, burst int) *ChatRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &ChatRateLimiter{
		every:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		entries: make(map[int64]*chatLimiter),
		now:     time.Now,
	}
}

// Allow reports whether chatID may be processed now and consumes a token.
func (r *ChatRateLimiter) Allow(chatID int64) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if len(r.entries) >= maxTrackedChats {
		r.evictLocked(now)
	}

	e, ok := r.entries[chatID]
	if !ok {
		e = &chatLimiter{limiter: rate.NewLimiter(r.every, r.burst)}
		r.entries[chatID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// evictLocked drops chats idle for more than a minute, then arbitrary
// entries if still at the cap.
func (r *ChatRateLimiter) evictLocked(now time.Time) {
	for k, e := range r.entries {
		if now.Sub(e.lastSeen) >= time.Minute {
			delete(r.entries, k)
		}
	}
	for len(r.entries) >= maxTrackedChats {
		for k := range r.entries {
			delete(r.entries, k)
			break
		}
	}
}
