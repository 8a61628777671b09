package lambda

import (
	"context"
	"fmt"
)

// Handler is the calling convention preserved at every layer of a chain.
// A handler returns either a bare JSON-serializable value, a *Response, a
// *Envelope, or an error.
type Handler func(ctx context.Context, event *Event, kw *Kwargs) (interface{}, error)

// Middleware wraps a handler with one cross-cutting concern. A middleware
// may pass through to the inner handler with an enlarged Kwargs, short-
// circuit with an Envelope, or let an error propagate outward.
type Middleware interface {
	// Name identifies the middleware in build errors and logs.
	Name() string

	// Provides lists the Kwargs fields this middleware fills in.
	Provides() []Field

	// Requires lists the Kwargs fields this middleware reads, which must be
	// provided by an earlier (outer) middleware in the chain.
	Requires() []Field

	// Wrap builds the wrapped handler.
	Wrap(next Handler) Handler
}

// Validator is implemented by middleware whose configuration can be checked
// when the chain is built. A failed check fails chain construction instead
// of every request.
type Validator interface {
	Validate() error
}

// Chain is an ordered list of middleware, outermost first. The first
// middleware sees the raw event first and the final result last, so the
// response codec conventionally goes first.
type Chain struct {
	middleware []Middleware
}

// NewChain builds a chain from the given middleware, outermost first.
func NewChain(mw ...Middleware) *Chain {
	return &Chain{middleware: mw}
}

// Use appends middleware to the inner end of the chain.
func (c *Chain) Use(mw ...Middleware) *Chain {
	c.middleware = append(c.middleware, mw...)
	return c
}

// Build folds the chain into a single handler around h. It fails if two
// middleware provide the same field, if a middleware requires a field no
// earlier middleware provides, or if any middleware fails its own
// configuration check.
func (c *Chain) Build(h Handler) (Handler, error) {
	provided := map[Field]string{}
	for _, mw := range c.middleware {
		if v, ok := mw.(Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, fmt.Errorf("middleware %s: %w", mw.Name(), err)
			}
		}
		for _, f := range mw.Requires() {
			if _, ok := provided[f]; !ok {
				return nil, fmt.Errorf("middleware %s requires field %q, which no earlier middleware provides", mw.Name(), f)
			}
		}
		for _, f := range mw.Provides() {
			if prev, ok := provided[f]; ok {
				return nil, fmt.Errorf("middleware %s provides field %q already provided by %s", mw.Name(), f, prev)
			}
			provided[f] = mw.Name()
		}
	}

	wrapped := h
	for i := len(c.middleware) - 1; i >= 0; i-- {
		wrapped = c.middleware[i].Wrap(wrapped)
	}

	return func(ctx context.Context, event *Event, kw *Kwargs) (interface{}, error) {
		if kw == nil {
			kw = &Kwargs{}
		}
		return wrapped(ctx, event, kw)
	}, nil
}

// MustBuild is Build that panics on a construction error. Chains are built
// once at startup, so a bad composition should fail the cold start.
func (c *Chain) MustBuild(h Handler) Handler {
	built, err := c.Build(h)
	if err != nil {
		panic("lambda: " + err.Error())
	}
	return built
}
