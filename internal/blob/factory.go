package blob

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// New builds the storage named by cfg.Type.
func New(cfg *Config, logger *logrus.Logger) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		base := cfg.BasePath
		if base == "" {
			base = "./data/blobs"
		}
		return NewLocalStorage(base)
	case "s3":
		if cfg.Client == nil {
			return nil, fmt.Errorf("s3 blob storage requires a client")
		}
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 blob storage requires a bucket")
		}
		return NewS3Storage(cfg.Client, cfg.Bucket, cfg.EncryptKeyARN, logger), nil
	default:
		return nil, fmt.Errorf("unsupported blob storage type: %s", cfg.Type)
	}
}
