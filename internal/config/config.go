package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the example services.
type Config struct {
	Environment string
	Port        string
	Namespace   string
	Store       StoreConfig
	Blob        BlobConfig
	Events      EventsConfig
	JWT         JWTConfig
	Throttle    ThrottleConfig
	CORSPattern string
}

// StoreConfig selects the item store backend.
type StoreConfig struct {
	Backend        string // "memory", "sqlite" or "dynamo"
	SQLitePath     string
	MigrationsPath string
}

// BlobConfig selects where configuration blobs live.
type BlobConfig struct {
	Type          string // "local" or "s3"
	LocalPath     string
	Bucket        string
	EncryptKeyARN string
	ConfTTLSecs   int
}

// EventsConfig holds SNS publishing settings.
type EventsConfig struct {
	Region    string
	AccountID string
}

// JWTConfig holds token settings for the dev authorizer.
type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// ThrottleConfig bounds request rate on the example handlers.
type ThrottleConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from the environment, with a .env file when one
// exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8081")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("NAMESPACE", "dev")
	viper.SetDefault("STORE_BACKEND", "sqlite")
	viper.SetDefault("STORE_SQLITE_PATH", "./data/faaskit.db")
	viper.SetDefault("STORE_MIGRATIONS_PATH", "./migrations")
	viper.SetDefault("BLOB_TYPE", "local")
	viper.SetDefault("BLOB_LOCAL_PATH", "./data/blobs")
	viper.SetDefault("CONF_TTL_SECONDS", 30)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("THROTTLE_RPS", 50.0)
	viper.SetDefault("THROTTLE_BURST", 100)
	viper.SetDefault("CORS_PATTERN", `.*\.cloudzero\.com`)

	config := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Port:        viper.GetString("PORT"),
		Namespace:   viper.GetString("NAMESPACE"),
		Store: StoreConfig{
			Backend:        viper.GetString("STORE_BACKEND"),
			SQLitePath:     viper.GetString("STORE_SQLITE_PATH"),
			MigrationsPath: viper.GetString("STORE_MIGRATIONS_PATH"),
		},
		Blob: BlobConfig{
			Type:          viper.GetString("BLOB_TYPE"),
			LocalPath:     viper.GetString("BLOB_LOCAL_PATH"),
			Bucket:        viper.GetString("CONFIG_BUCKET"),
			EncryptKeyARN: viper.GetString("ENCRYPT_KEY_ARN"),
			ConfTTLSecs:   viper.GetInt("CONF_TTL_SECONDS"),
		},
		Events: EventsConfig{
			Region:    viper.GetString("AWS_REGION"),
			AccountID: viper.GetString("AWS_ACCOUNT_ID"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Throttle: ThrottleConfig{
			RequestsPerSecond: viper.GetFloat64("THROTTLE_RPS"),
			Burst:             viper.GetInt("THROTTLE_BURST"),
		},
		CORSPattern: viper.GetString("CORS_PATTERN"),
	}

	return config, nil
}

// GetEnv gets an environment variable with a fallback value.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt gets an environment variable as integer with a fallback value.
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
