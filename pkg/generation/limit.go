package generation

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// NewLimiter returns a token bucket allowing rps requests per second.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type limited struct {
	gen     Generator
	limiter *rate.Limiter
}

// Limit wraps gen so calls wait on limiter. A wait cut short by the
// context deadline fails with KindTimeout, cancellation passes through,
// and a request the limiter can never admit fails with KindQuota.
func Limit(gen Generator, limiter *rate.Limiter) Generator {
	return &limited{gen: gen, limiter: limiter}
}

func (l *limited) Generate(ctx context.Context, req Request) (Response, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, FromContext("", ctxErr)
		}
		// Wait fails early when the next token lands after the deadline.
		if _, ok := ctx.Deadline(); ok {
			return Response{}, &Error{Kind: KindTimeout, Message: "rate limit wait exceeds the deadline", Err: errors.Join(context.DeadlineExceeded, err)}
		}
		return Response{}, &Error{Kind: KindQuota, Message: "local rate limit reached", Err: err}
	}
	return l.gen.Generate(ctx, req)
}
