package middleware

import (
	"context"
	"strings"

	"faaskit/pkg/lambda"
)

// Authorizer claim names injected by the API Gateway custom authorizer.
const (
	claimDomain = "domain"
	claimSub    = "sub"
	claimScopes = "scopes"
)

type domainAware struct{}

// DomainAware extracts the caller's custom-domain claim into kwargs. The
// claim is required: an event without it is a misconfigured authorizer, not
// a client mistake, so the failure is a 500.
func DomainAware() lambda.Middleware { return domainAware{} }

func (domainAware) Name() string             { return "domain-aware" }
func (domainAware) Provides() []lambda.Field { return []lambda.Field{lambda.FieldDomain} }
func (domainAware) Requires() []lambda.Field { return nil }

func (domainAware) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		domain := event.Claim(claimDomain)
		if domain == "" {
			return &lambda.Envelope{StatusCode: 500, Body: "missing domain"}, nil
		}
		kw.Domain = domain
		return next(ctx, event, kw)
	}
}

type subAware struct{}

// SubAware extracts the caller's subject identifier claim into kwargs.
// Required; absent means the authorizer is broken, so 500.
func SubAware() lambda.Middleware { return subAware{} }

func (subAware) Name() string             { return "sub-aware" }
func (subAware) Provides() []lambda.Field { return []lambda.Field{lambda.FieldSub} }
func (subAware) Requires() []lambda.Field { return nil }

func (subAware) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		sub := event.Claim(claimSub)
		if sub == "" {
			return &lambda.Envelope{StatusCode: 500, Body: "missing sub"}, nil
		}
		kw.Sub = sub
		return next(ctx, event, kw)
	}
}

type scopes struct {
	required []string
}

// Scopes requires the caller's scopes claim to be a superset of the given
// scopes. A missing claim is an authorizer failure (500, "missing"); an
// insufficient claim is an authorization failure (403, "insufficient").
// The granted scopes are injected into kwargs on success.
func Scopes(required ...string) lambda.Middleware {
	return &scopes{required: required}
}

func (m *scopes) Name() string             { return "scopes" }
func (m *scopes) Provides() []lambda.Field { return []lambda.Field{lambda.FieldScopes} }
func (m *scopes) Requires() []lambda.Field { return nil }

func (m *scopes) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		if !event.HasClaim(claimScopes) {
			return &lambda.Envelope{StatusCode: 500, Body: "missing scopes"}, nil
		}
		granted := strings.Fields(event.Claim(claimScopes))
		grantedSet := make(map[string]struct{}, len(granted))
		for _, s := range granted {
			grantedSet[s] = struct{}{}
		}
		for _, s := range m.required {
			if _, ok := grantedSet[s]; !ok {
				return &lambda.Envelope{StatusCode: 403, Body: "insufficient scopes"}, nil
			}
		}
		kw.Scopes = granted
		return next(ctx, event, kw)
	}
}
