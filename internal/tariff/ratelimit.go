package tariff

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests to the tariff API. The bucket holds one
// minute of requests and refills continuously.
type RateLimiter struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	requests int64
	waited   time.Duration
	throttle time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter allows requestsPerMinute requests, bursting up to the
// full minute's allowance.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &RateLimiter{limiter: rate.NewLimiter(every, requestsPerMinute)}
}

// Wait blocks until a request may be sent. It fails early when ctx would
// expire before then.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.requests++
	r.waited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// Record429 empties the bucket after the API answered 429, so the next
// request waits for a fresh token.
func (r *RateLimiter) Record429() {
	now := time.Now()
	if n := int(r.limiter.TokensAt(now)); n > 0 {
		r.limiter.AllowN(now, n)
	}

	r.mu.Lock()
	r.throttle = now
	r.mu.Unlock()
}

// Status returns current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens := int(r.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return RateLimiterStatus{
		TokensAvailable: tokens,
		TokensLimit:     r.limiter.Burst(),
		TotalConsumed:   r.requests,
		TotalWaited:     r.waited,
		Last429Time:     r.throttle,
	}
}
