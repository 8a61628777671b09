package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"faaskit/pkg/lambda"
)

type allowOrigin struct {
	pattern string
	re      *regexp.Regexp
	logger  *logrus.Logger
}

// AllowOrigin enforces CORS: the request origin header (matched case-
// insensitively on the header name, exactly on the value) must match the
// given pattern. Matching requests get the CORS response headers attached
// and the origin injected into kwargs; everything else is rejected with 403.
// The primitive composes identically on either side of the response codec.
func AllowOrigin(pattern string) lambda.Middleware {
	m := &allowOrigin{pattern: pattern, logger: logrus.StandardLogger()}
	m.re, _ = regexp.Compile(pattern)
	return m
}

func (m *allowOrigin) Name() string             { return "allow-origin" }
func (m *allowOrigin) Provides() []lambda.Field { return []lambda.Field{lambda.FieldOrigin} }
func (m *allowOrigin) Requires() []lambda.Field { return nil }

func (m *allowOrigin) Validate() error {
	if m.re == nil {
		if _, err := regexp.Compile(m.pattern); err != nil {
			return fmt.Errorf("invalid origin pattern: %w", err)
		}
	}
	return nil
}

func (m *allowOrigin) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		origin := event.Header("origin")
		if m.re == nil || !m.re.MatchString(origin) {
			m.logger.WithField("origin", origin).Warn("Rejecting request origin")
			return &lambda.Envelope{StatusCode: 403, Body: "Forbidden"}, nil
		}

		kw.Origin = origin
		result, err := next(ctx, event, kw)
		if err != nil {
			return result, err
		}

		headers := map[string]string{
			"Access-Control-Allow-Origin":      origin,
			"Access-Control-Allow-Credentials": "true",
		}
		switch r := result.(type) {
		case *lambda.Envelope:
			r.Headers = mergeHeaders(r.Headers, headers)
			return r, nil
		case *lambda.Response:
			r.Headers = mergeHeaders(r.Headers, headers)
			return r, nil
		default:
			return &lambda.Response{Body: result, Headers: headers}, nil
		}
	}
}

// mergeHeaders adds entries from add into base without clobbering keys the
// inner layers already set.
func mergeHeaders(base, add map[string]string) map[string]string {
	if base == nil {
		return add
	}
	for k, v := range add {
		if _, ok := base[k]; !ok {
			base[k] = v
		}
	}
	return base
}
