package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// acceptRateLimiter throttles the TCP accept loop using golang.org/x/time/rate
// in place of the teacher's hand-rolled token bucket.
type acceptRateLimiter struct {
	limiter *rate.Limiter
}

func newAcceptRateLimiter(perSecond float64, burst int) *acceptRateLimiter {
	if perSecond <= 0 {
		perSecond = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &acceptRateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until an accept is permitted or ctx is done.
func (a *acceptRateLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func defaultAcceptContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
