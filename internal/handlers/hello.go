// Package handlers holds the example business handlers wired through the
// middleware chain. They stay thin: declare the operation, stack the
// primitives, return plain values.
package handlers

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"faaskit/pkg/lambda"
	"faaskit/pkg/middleware"
)

// HelloDeps carries everything the hello endpoint needs at cold start.
type HelloDeps struct {
	Env         map[string]string
	ConfClient  lambda.ConfigClient
	CORSPattern string
	Limiter     *rate.Limiter
	Logger      *logrus.Logger
}

// Hello greets the authenticated caller with its namespace and settings.
type Hello struct {
	logger *logrus.Logger
}

// NewHello builds the handler.
func NewHello(logger *logrus.Logger) *Hello {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hello{logger: logger}
}

// Handle is the innermost business function.
func (h *Hello) Handle(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
	h.logger.WithFields(logrus.Fields{
		"namespace": kw.Namespace,
		"sub":       kw.Sub,
	}).Info("Handling hello request")

	settings, err := kw.Configuration.Load(ctx)
	if err != nil {
		return nil, err
	}

	greeting := "hello"
	if g, ok := settings["greeting"].(string); ok && g != "" {
		greeting = g
	}

	return map[string]interface{}{
		"message":   greeting,
		"namespace": kw.Namespace,
		"sub":       kw.Sub,
	}, nil
}

// NewHelloChain stacks the endpoint's middleware around the handler. The
// response codec is outermost so every inner failure still becomes a
// well-formed envelope.
func NewHelloChain(deps *HelloDeps) lambda.Handler {
	h := NewHello(deps.Logger)
	return lambda.NewChain(
		middleware.HTTPResponse(middleware.WithCodecLogger(deps.Logger)),
		middleware.Throttle(deps.Limiter),
		middleware.AllowOrigin(deps.CORSPattern),
		middleware.NamespaceAware(deps.Env),
		middleware.ConfAware(deps.ConfClient),
		middleware.SubAware(),
		middleware.Scopes("hello:read"),
	).MustBuild(h.Handle)
}
