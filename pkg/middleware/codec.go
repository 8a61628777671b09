// Package middleware provides the catalog of composable handler-wrapping
// primitives. Each primitive implements one cross-cutting concern and
// preserves the chain calling convention, so arbitrary compositions keep
// consistent error semantics.
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"

	"faaskit/pkg/lambda"
)

type httpResponse struct {
	defaultErrorMessage string
	logger              *logrus.Logger
}

// HTTPResponseOption configures the response codec.
type HTTPResponseOption func(*httpResponse)

// WithDefaultErrorMessage sets the body used for unhandled errors instead of
// the message computed from the invoked function's name.
func WithDefaultErrorMessage(msg string) HTTPResponseOption {
	return func(m *httpResponse) { m.defaultErrorMessage = msg }
}

// WithCodecLogger sets the logger used for unhandled errors.
func WithCodecLogger(logger *logrus.Logger) HTTPResponseOption {
	return func(m *httpResponse) { m.logger = logger }
}

// HTTPResponse is the response codec: it canonicalizes whatever the wrapped
// chain produces into an Envelope. Explicit status codes and headers are
// preserved, bare values become a 200 body, HTTPErrors are encoded verbatim,
// and any other error becomes a logged 500 with a short diagnostic. It goes
// outermost in a chain so every inner short-circuit is still captured.
// The codec itself never fails.
func HTTPResponse(opts ...HTTPResponseOption) lambda.Middleware {
	m := &httpResponse{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *httpResponse) Name() string            { return "http-response" }
func (m *httpResponse) Provides() []lambda.Field { return nil }
func (m *httpResponse) Requires() []lambda.Field { return nil }

func (m *httpResponse) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		result, err := next(ctx, event, kw)
		if err != nil {
			return m.encodeError(ctx, err), nil
		}

		switch r := result.(type) {
		case *lambda.Envelope:
			return r, nil
		case *lambda.Response:
			return m.encode(r), nil
		default:
			return m.encode(&lambda.Response{StatusCode: 200, Body: result}), nil
		}
	}
}

func (m *httpResponse) encode(r *lambda.Response) *lambda.Envelope {
	body, err := lambda.EncodeBody(r.Body)
	if err != nil {
		m.logger.WithError(err).Error("Failed to serialize response body")
		return &lambda.Envelope{StatusCode: 500, Body: "Internal server error"}
	}
	status := r.StatusCode
	if status == 0 {
		status = 200
	}
	return &lambda.Envelope{StatusCode: status, Body: body, Headers: r.Headers}
}

func (m *httpResponse) encodeError(ctx context.Context, err error) *lambda.Envelope {
	var httpErr *lambda.HTTPError
	if errors.As(err, &httpErr) {
		status := httpErr.StatusCode
		if status == 0 {
			status = 500
		}
		return m.encode(&lambda.Response{StatusCode: status, Body: httpErr.Body})
	}

	m.logger.WithError(err).Error("Unhandled error in handler")
	msg := m.defaultErrorMessage
	if msg == "" {
		msg = defaultErrorMessage()
	}
	return &lambda.Envelope{StatusCode: 500, Body: msg}
}

// defaultErrorMessage derives a client-safe diagnostic from the invoked
// function's name, converting separators to spaces. The Lambda runtime
// exposes the name as package state rather than on the context.
func defaultErrorMessage() string {
	name := lambdacontext.FunctionName
	if name == "" {
		return "Unexpected server error"
	}
	cleaned := strings.NewReplacer("_", " ", ".", " ", "-", " ").Replace(name)
	return "Error in " + cleaned
}
