// Package telegram adapts the Telegram Bot API long-poll stream to the
// conversation engine.
//
// This file implements a per-chat token-bucket flood limiter with
// opportunistic garbage collection, keeping memory bounded without a
// background goroutine. It is process-local edge protection against a
// single chat spamming the intake flow.
package telegram

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single chat's limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodLimiter enforces per-chat token buckets. Safe for concurrent use.
type FloodLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	chats    map[int64]*visitor
	ttl      time.Duration
	cleanupN uint64
}

// NewFloodLimiter constructs a limiter with the given tokens-per-second and
// burst size. A burst <= 0 is coerced to 1.
func NewFloodLimiter(rps float64, burst int) *FloodLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &FloodLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		chats: make(map[int64]*visitor),
		ttl:   10 * time.Minute,
	}
}

// Allow reports whether the chat may send another message right now.
func (l *FloodLimiter) Allow(chatID int64) bool {
	return l.bucket(chatID).Allow()
}

// bucket returns (and refreshes) the limiter for chatID, creating it if
// absent. Idle buckets are evicted after a threshold of lookups; the GC runs
// before touching the requested bucket so a stale entry can be evicted even
// when it is the one being fetched.
func (l *FloodLimiter) bucket(chatID int64) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	l.cleanupN++
	if l.cleanupN >= 5000 {
		for id, v := range l.chats {
			if now.Sub(v.lastSeen) >= l.ttl {
				delete(l.chats, id)
			}
		}
		l.cleanupN = 0
	}

	if v, ok := l.chats[chatID]; ok {
		v.lastSeen = now
		lim := v.limiter
		l.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	l.chats[chatID] = &visitor{limiter: lim, lastSeen: now}
	l.mu.Unlock()
	return lim
}
