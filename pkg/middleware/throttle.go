package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"faaskit/pkg/lambda"
)

type throttle struct {
	limiter *rate.Limiter
}

// Throttle admits requests through a shared token bucket and short-circuits
// with 429 when the bucket is empty. The limiter is shared across the warm
// invocations of one function instance.
func Throttle(limiter *rate.Limiter) lambda.Middleware {
	return &throttle{limiter: limiter}
}

func (m *throttle) Name() string             { return "throttle" }
func (m *throttle) Provides() []lambda.Field { return nil }
func (m *throttle) Requires() []lambda.Field { return nil }

func (m *throttle) Validate() error {
	if m.limiter == nil {
		return errors.New("rate limiter is nil")
	}
	return nil
}

func (m *throttle) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		if !m.limiter.Allow() {
			return &lambda.Envelope{StatusCode: 429, Body: "Too many requests"}, nil
		}
		return next(ctx, event, kw)
	}
}
