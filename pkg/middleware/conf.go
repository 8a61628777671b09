package middleware

import (
	"context"
	"errors"

	"faaskit/pkg/lambda"
)

type confAware struct {
	client lambda.ConfigClient
}

// ConfAware injects a bound configuration client so handlers can load and
// save deployment settings without knowing where they live.
func ConfAware(client lambda.ConfigClient) lambda.Middleware {
	return &confAware{client: client}
}

func (m *confAware) Name() string             { return "conf-aware" }
func (m *confAware) Provides() []lambda.Field { return []lambda.Field{lambda.FieldConfiguration} }
func (m *confAware) Requires() []lambda.Field { return nil }

func (m *confAware) Validate() error {
	if m.client == nil {
		return errors.New("configuration client is nil")
	}
	return nil
}

func (m *confAware) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		kw.Configuration = m.client
		return next(ctx, event, kw)
	}
}
