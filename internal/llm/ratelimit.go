package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token-bucket limiter so a
// runaway script cannot flood the upstream API. Calls block until a token
// is available or the context is cancelled.
// Uses token bucket algorithm via golang.org/x/time/rate.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p with a requests-per-minute budget. rpm values
// below 1 are treated as 1.
func NewRateLimited(p Provider, rpm int) *RateLimitedProvider {
	if rpm < 1 {
		rpm = 1
	}
	return &RateLimitedProvider{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Generate(ctx, prompt)
}

func (p *RateLimitedProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return p.inner.Similarity(ctx, a, b)
}
