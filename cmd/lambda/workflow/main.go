package main

import (
	"context"

	"faaskit/internal/config"
	"faaskit/internal/handlers"
	"faaskit/pkg/lambda"
	"faaskit/pkg/middleware"
	"faaskit/pkg/pubsub"
	"faaskit/pkg/saga"
	"faaskit/pkg/store"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

var handler lambda.Handler

func init() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		panic("Failed to load AWS configuration: " + err.Error())
	}

	st, err := store.New(&store.Config{
		Backend:        cfg.Store.Backend,
		SQLitePath:     cfg.Store.SQLitePath,
		MigrationsPath: cfg.Store.MigrationsPath,
		DynamoClient:   dynamodb.NewFromConfig(awsCfg),
		Logger:         logger,
	})
	if err != nil {
		panic("Failed to initialize item store: " + err.Error())
	}

	engine, err := saga.NewEngine(handlers.OrderWorkflow(), st, logger)
	if err != nil {
		panic("Failed to initialize workflow engine: " + err.Error())
	}

	conn := pubsub.Connect(sns.NewFromConfig(awsCfg), cfg.Events.Region, cfg.Events.AccountID, cfg.Namespace)

	handler = handlers.NewWorkflowChain(&handlers.WorkflowDeps{
		Env:    middleware.EnvFromOS(),
		Engine: engine,
		Conn:   conn,
		Topic:  "order-transitions",
		Logger: logger,
	})
}

func main() {
	awslambda.Start(lambda.SNSHandler(handler))
}
