package middleware

import (
	"context"
	"encoding/json"
	"fmt"

	"faaskit/pkg/lambda"
)

type parameters struct {
	requiredQuerystring []string
	optionalQuerystring []string
	path                []string
}

// Parameters validates presence of the required query-string and path
// parameters and injects them, together with any present optional ones,
// into kwargs. A missing required parameter short-circuits with 400.
func Parameters(requiredQuerystring, optionalQuerystring, path []string) lambda.Middleware {
	return &parameters{
		requiredQuerystring: requiredQuerystring,
		optionalQuerystring: optionalQuerystring,
		path:                path,
	}
}

func (m *parameters) Name() string             { return "parameters" }
func (m *parameters) Provides() []lambda.Field { return []lambda.Field{lambda.FieldParams} }
func (m *parameters) Requires() []lambda.Field { return nil }

func (m *parameters) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		params := map[string]string{}

		for _, name := range m.requiredQuerystring {
			v, ok := event.QueryStringParameters[name]
			if !ok {
				return &lambda.Envelope{
					StatusCode: 400,
					Body:       fmt.Sprintf("Invalid querystring parameters: missing %s", name),
				}, nil
			}
			params[name] = v
		}
		for _, name := range m.optionalQuerystring {
			if v, ok := event.QueryStringParameters[name]; ok {
				params[name] = v
			}
		}
		for _, name := range m.path {
			v, ok := event.PathParameters[name]
			if !ok {
				return &lambda.Envelope{
					StatusCode: 400,
					Body:       fmt.Sprintf("Invalid path parameters: missing %s", name),
				}, nil
			}
			params[name] = v
		}

		kw.Params = params
		return next(ctx, event, kw)
	}
}

type body struct {
	required []string
	optional []string
}

// Body deserializes the event body as JSON, validates the required keys, and
// injects the parsed body (filtered to declared keys that are present) into
// kwargs. Malformed JSON and missing required keys short-circuit with 400.
func Body(required, optional []string) lambda.Middleware {
	return &body{required: required, optional: optional}
}

func (m *body) Name() string             { return "body" }
func (m *body) Provides() []lambda.Field { return []lambda.Field{lambda.FieldBody} }
func (m *body) Requires() []lambda.Field { return nil }

func (m *body) Wrap(next lambda.Handler) lambda.Handler {
	return func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(event.Body), &parsed); err != nil {
			return &lambda.Envelope{StatusCode: 400, Body: "cannot decode json body"}, nil
		}

		filtered := map[string]interface{}{}
		for _, name := range m.required {
			v, ok := parsed[name]
			if !ok {
				return &lambda.Envelope{
					StatusCode: 400,
					Body:       fmt.Sprintf("missing required key: %s", name),
				}, nil
			}
			filtered[name] = v
		}
		for _, name := range m.optional {
			if v, ok := parsed[name]; ok {
				filtered[name] = v
			}
		}

		kw.Body = filtered
		return next(ctx, event, kw)
	}
}
