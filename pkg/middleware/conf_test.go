package middleware

import (
	"context"
	"testing"

	"faaskit/pkg/lambda"
)

type stubConfClient struct {
	settings map[string]interface{}
	saved    map[string]interface{}
}

func (c *stubConfClient) Load(ctx context.Context) (map[string]interface{}, error) {
	return c.settings, nil
}

func (c *stubConfClient) Save(ctx context.Context, settings map[string]interface{}) error {
	c.saved = settings
	return nil
}

func TestConfAware_InjectsClient(t *testing.T) {
	client := &stubConfClient{settings: map[string]interface{}{"greeting": "hiya"}}
	built := lambda.NewChain(ConfAware(client)).MustBuild(
		func(ctx context.Context, event *lambda.Event, kw *lambda.Kwargs) (interface{}, error) {
			settings, err := kw.Configuration.Load(ctx)
			if err != nil {
				return nil, err
			}
			return settings["greeting"], nil
		})

	result, err := built(context.Background(), &lambda.Event{}, nil)
	if err != nil {
		t.Fatalf("chain error = %v", err)
	}
	if result != "hiya" {
		t.Errorf("result = %v, want hiya", result)
	}
}

func TestConfAware_NilClientFailsBuild(t *testing.T) {
	if _, err := lambda.NewChain(ConfAware(nil)).Build(echoHandler); err == nil {
		t.Fatal("expected build error for nil client")
	}
}
