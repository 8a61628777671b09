package main

import (
	"context"

	"faaskit/internal/blob"
	"faaskit/internal/conf"
	"faaskit/internal/config"
	"faaskit/internal/handlers"
	"faaskit/pkg/lambda"
	"faaskit/pkg/middleware"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
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

	storage, err := blob.New(&blob.Config{
		Type:          cfg.Blob.Type,
		BasePath:      cfg.Blob.LocalPath,
		Bucket:        cfg.Blob.Bucket,
		EncryptKeyARN: cfg.Blob.EncryptKeyARN,
		Client:        s3.NewFromConfig(awsCfg),
	}, logger)
	if err != nil {
		panic("Failed to initialize blob storage: " + err.Error())
	}

	handler = handlers.NewHelloChain(&handlers.HelloDeps{
		Env:         middleware.EnvFromOS(),
		ConfClient:  conf.NewClient(storage, cfg.Namespace, 0, logger),
		CORSPattern: cfg.CORSPattern,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Throttle.RequestsPerSecond), cfg.Throttle.Burst),
		Logger:      logger,
	})
}

func main() {
	awslambda.Start(lambda.APIGatewayHandler(handler))
}
