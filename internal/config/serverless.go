package config

import (
	"os"
	"sync"
)

// ServerlessConfig describes the Lambda execution environment.
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration, detected once.
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = &ServerlessConfig{
			IsLambda:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
			FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			Region:       os.Getenv("AWS_REGION"),
			Stage:        GetEnv("STAGE", "dev"),
		}
	})
	return serverlessConfig
}

// IsServerlessMode reports whether the process runs inside Lambda.
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// AdaptForServerless switches local-only backends to their deployed
// equivalents when running in Lambda, where the filesystem is ephemeral.
func AdaptForServerless(config *Config) *Config {
	if !IsServerlessMode() {
		return config
	}

	if config.Store.Backend == "sqlite" {
		config.Store.Backend = "dynamo"
	}
	if config.Blob.Type == "local" {
		config.Blob.Type = "s3"
		if config.Blob.Bucket == "" {
			config.Blob.Bucket = GetEnv("CONFIG_BUCKET", "faaskit-config")
		}
	}
	return config
}

// GetOptimizedConfig loads configuration adapted to the deployment mode.
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	return AdaptForServerless(config), nil
}
