// Package ratelimit enforces a minimum interval between requests,
// tracked independently per endpoint class.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class tags an outbound request by semantic category. It selects which
// rate budget and retry policy applies to the request.
type Class string

const (
	ClassGeneric        Class = "generic"
	ClassTagList        Class = "tag_list"
	ClassPostDetail     Class = "post_detail"
	ClassCommentL1      Class = "comment_l1"
	ClassCommentL2      Class = "comment_l2"
	ClassCollectionList Class = "collection_list"
	ClassSubscription   Class = "subscription_list"
)

// DefaultIntervals holds the observed safe minimum intervals per class.
var DefaultIntervals = map[Class]time.Duration{
	ClassGeneric:        time.Second,
	ClassTagList:        50 * time.Millisecond,
	ClassPostDetail:     5 * time.Millisecond,
	ClassCommentL1:      50 * time.Millisecond,
	ClassCommentL2:      time.Second,
	ClassCollectionList: 10 * time.Millisecond,
	ClassSubscription:   time.Second,
}

// Limiter serializes requests of the same class so that two dispatches
// are never closer together than the class's minimum interval. Classes
// never block each other.
type Limiter struct {
	mu        sync.Mutex
	intervals map[Class]time.Duration
	limiters  map[Class]*rate.Limiter
}

// New creates a limiter with the given per-class intervals. Classes not
// present in the map fall back to the generic interval.
func New(intervals map[Class]time.Duration) *Limiter {
	merged := make(map[Class]time.Duration, len(DefaultIntervals))
	for class, iv := range DefaultIntervals {
		merged[class] = iv
	}
	for class, iv := range intervals {
		merged[class] = iv
	}
	return &Limiter{
		intervals: merged,
		limiters:  make(map[Class]*rate.Limiter, len(merged)),
	}
}

// Acquire blocks the calling goroutine until the class's interval has
// elapsed since the last reservation, then atomically reserves now.
// Concurrent callers of the same class are serialized by the underlying
// token bucket; the reservation is taken even when the caller's request
// later fails, so retry backoff is itself rate-limited.
func (l *Limiter) Acquire(ctx context.Context, class Class) error {
	return l.limiterFor(class).Wait(ctx)
}

// Interval reports the configured minimum interval for a class.
func (l *Limiter) Interval(class Class) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if iv, ok := l.intervals[class]; ok {
		return iv
	}
	return l.intervals[ClassGeneric]
}

func (l *Limiter) limiterFor(class Class) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[class]; ok {
		return lim
	}
	iv, ok := l.intervals[class]
	if !ok {
		iv = l.intervals[ClassGeneric]
	}
	limit := rate.Inf
	if iv > 0 {
		limit = rate.Every(iv)
	}
	// Burst of one makes the bucket a pure min-interval gate.
	lim := rate.NewLimiter(limit, 1)
	l.limiters[class] = lim
	return lim
}
