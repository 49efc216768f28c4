// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimited throttles a shared provider across concurrent invocations.
type rateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so that calls start at most rps times per second.
// A burst below 1 is treated as 1.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

// Complete waits for the limiter, then delegates. A cancelled context
// returns without calling the provider.
func (r *rateLimited) Complete(ctx context.Context, req Request) (Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{}, err
	}
	return r.next.Complete(ctx, req)
}
