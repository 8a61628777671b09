// Package conf loads and saves namespaced application settings stored as a
// JSON blob, with a read-through cache so warm Lambda containers skip the
// round trip.
package conf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"faaskit/internal/blob"
)

// DefaultTTL bounds how long a warm container trusts its cached settings.
const DefaultTTL = 30 * time.Second

// Client reads and writes one settings document. It satisfies
// lambda.ConfigClient.
type Client struct {
	storage blob.Storage
	key     string
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu        sync.Mutex
	cached    map[string]interface{}
	fetchedAt time.Time
}

// NewClient builds a client for the given namespace. Settings live at
// "<namespace>/settings.json". A ttl of zero uses DefaultTTL; a negative
// ttl disables caching.
func NewClient(storage blob.Storage, namespace string, ttl time.Duration, logger *logrus.Logger) *Client {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		storage: storage,
		key:     fmt.Sprintf("%s/settings.json", namespace),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Load returns the current settings. A missing document is an empty
// settings map, so a fresh namespace works before its first Save.
func (c *Client) Load(ctx context.Context) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return copySettings(c.cached), nil
	}

	data, err := c.storage.Retrieve(ctx, c.key)
	if blob.IsNotFound(err) {
		c.logger.WithField("key", c.key).Debug("No settings document yet")
		c.cache(map[string]interface{}{})
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	c.cache(settings)
	return copySettings(settings), nil
}

// Save writes the settings document and refreshes the cache.
func (c *Client) Save(ctx context.Context, settings map[string]interface{}) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := c.storage.Store(ctx, c.key, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	c.mu.Lock()
	c.cache(settings)
	c.mu.Unlock()

	c.logger.WithField("key", c.key).Info("Settings saved")
	return nil
}

// cache stores a copy; callers may mutate what they passed or received.
// Callers must hold mu.
func (c *Client) cache(settings map[string]interface{}) {
	c.cached = copySettings(settings)
	c.fetchedAt = c.now()
}

func copySettings(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}
