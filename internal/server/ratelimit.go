package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// idleBucketTTL is how long a bucket may sit untouched before a sweep drops it.
const idleBucketTTL = time.Hour

type bucketKey struct {
	route  string
	client string
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// RateLimiter meters each client separately on each route. Tokens refill
// continuously at capacity per window.
type RateLimiter struct {
	mu        sync.Mutex
	capacity  float64
	window    time.Duration
	buckets   map[bucketKey]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		capacity: float64(capacity),
		window:   window,
		buckets:  make(map[bucketKey]*bucket),
		now:      time.Now,
	}
}

// Take spends one token for client on route. When the bucket is empty it
// returns false and how long until the next token.
func (r *RateLimiter) Take(route, client string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	key := bucketKey{route: route, client: client}
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{tokens: r.capacity, seen: now}
		r.buckets[key] = b
	}
	refill := float64(now.Sub(b.seen)) / float64(r.window) * r.capacity
	b.tokens = math.Min(r.capacity, b.tokens+refill)
	b.seen = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / r.capacity * float64(r.window))
		return false, wait.Round(time.Millisecond)
	}
	b.tokens--
	return true, 0
}

// sweep drops idle buckets at most once per idleBucketTTL. Caller holds mu.
func (r *RateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < idleBucketTTL {
		return
	}
	r.lastSweep = now
	for key, b := range r.buckets {
		if now.Sub(b.seen) > idleBucketTTL {
			delete(r.buckets, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rateLimit(limiter *RateLimiter, route string, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := limiter.Take(route, clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many offer requests. Please wait a minute and try again.")
			return
		}
		next(w, r)
	}
}
