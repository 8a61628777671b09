package middleware

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"faaskit/pkg/lambda"
)

type catchErrors struct {
	logger *logrus.Logger
}

// CatchErrors swallows and logs any error (or panic) from the wrapped call.
// It is for fire-and-forget paths where the caller must not be able to
// observe a failure.
func CatchErrors(logger *logrus.Logger) lambda.Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &catchErrors{logger: logger}
}

func (m *catchErrors) Name() string             { return "catch-errors" }
func (m *catchErrors) Provides() []lambda.Field { return nil }
func (m *catchErrors) Requires() []lambda.Field { return nil }

func (m *catchErrors) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.WithField("panic", fmt.Sprintf("%v", r)).Error("Recovered panic in handler")
				result, err = nil, nil
			}
		}()

		result, err = next(ctx, event, kw)
		if err != nil {
			m.logger.WithError(err).Error("Swallowing handler error")
			return nil, nil
		}
		return result, nil
	}
}
