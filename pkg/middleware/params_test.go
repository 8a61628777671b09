package middleware

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"faaskit/pkg/lambda"
)

func TestParameters(t *testing.T) {
	tests := []struct {
		name       string
		event      *lambda.Event
		requiredQS []string
		optionalQS []string
		path       []string
		wantStatus int
		wantBody   string
		wantParams map[string]string
	}{
		{
			name: "required and path present",
			event: &lambda.Event{
				QueryStringParameters: map[string]string{"limit": "10"},
				PathParameters:        map[string]string{"id": "7"},
			},
			requiredQS: []string{"limit"},
			path:       []string{"id"},
			wantParams: map[string]string{"limit": "10", "id": "7"},
		},
		{
			name: "optional injected only when present",
			event: &lambda.Event{
				QueryStringParameters: map[string]string{"limit": "10"},
			},
			optionalQS: []string{"limit", "cursor"},
			wantParams: map[string]string{"limit": "10"},
		},
		{
			name:       "missing required querystring",
			event:      &lambda.Event{},
			requiredQS: []string{"limit"},
			wantStatus: 400,
			wantBody:   "Invalid querystring parameters: missing limit",
		},
		{
			name:       "missing path parameter",
			event:      &lambda.Event{PathParameters: map[string]string{}},
			path:       []string{"id"},
			wantStatus: 400,
			wantBody:   "Invalid path parameters: missing id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotParams map[string]string
			built := lambda.NewChain(Parameters(tt.requiredQS, tt.optionalQS, tt.path)).MustBuild(
				func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
					gotParams = kw.Params
					return "ok", nil
				})

			result, err := built(context.Background(), tt.event, nil)
			if err != nil {
				t.Fatalf("chain error = %v", err)
			}

			if tt.wantStatus != 0 {
				env, ok := result.(*lambda.Envelope)
				if !ok {
					t.Fatalf("result = %#v, want envelope", result)
				}
				if env.StatusCode != tt.wantStatus || env.Body != tt.wantBody {
					t.Errorf("envelope = %+v, want %d %q", env, tt.wantStatus, tt.wantBody)
				}
				return
			}
			if !reflect.DeepEqual(gotParams, tt.wantParams) {
				t.Errorf("params = %v, want %v", gotParams, tt.wantParams)
			}
		})
	}
}

func TestBody(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		required   []string
		optional   []string
		wantStatus int
		wantBody   string
		wantKwBody map[string]interface{}
	}{
		{
			name:       "valid body filtered to declared keys",
			body:       `{"a":1,"b":2,"extra":3}`,
			required:   []string{"a"},
			optional:   []string{"b"},
			wantKwBody: map[string]interface{}{"a": 1.0, "b": 2.0},
		},
		{
			name:       "absent optional omitted",
			body:       `{"a":1}`,
			required:   []string{"a"},
			optional:   []string{"b"},
			wantKwBody: map[string]interface{}{"a": 1.0},
		},
		{
			name:       "missing required key",
			body:       `{"a":1,"b":2}`,
			required:   []string{"a", "b", "c"},
			wantStatus: 400,
			wantBody:   "missing required key: c",
		},
		{
			name:       "malformed json",
			body:       `{"a":`,
			required:   []string{"a"},
			wantStatus: 400,
			wantBody:   "cannot decode json body",
		},
		{
			name:       "empty body",
			body:       "",
			required:   []string{"a"},
			wantStatus: 400,
			wantBody:   "cannot decode json body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]interface{}
			built := lambda.NewChain(Body(tt.required, tt.optional)).MustBuild(
				func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
					gotBody = kw.Body
					return "ok", nil
				})

			result, err := built(context.Background(), &lambda.Event{Body: tt.body}, nil)
			if err != nil {
				t.Fatalf("chain error = %v", err)
			}

			if tt.wantStatus != 0 {
				env, ok := result.(*lambda.Envelope)
				if !ok {
					t.Fatalf("result = %#v, want envelope", result)
				}
				if env.StatusCode != tt.wantStatus || !strings.Contains(env.Body, tt.wantBody) {
					t.Errorf("envelope = %+v, want %d %q", env, tt.wantStatus, tt.wantBody)
				}
				return
			}
			if !reflect.DeepEqual(gotBody, tt.wantKwBody) {
				t.Errorf("body = %v, want %v", gotBody, tt.wantKwBody)
			}
		})
	}
}
