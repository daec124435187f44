package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const defaultBatchSize = 100

// Config настройки подключения к OpenSearch. При Enabled=false индекс не используется вовсе.
type Config struct {
	Enabled            bool          `mapstructure:"enabled"`
	URL                string        `mapstructure:"url" validate:"required_if=Enabled true"`
	IndexName          string        `mapstructure:"index_name" validate:"required"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"required,min=1s"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"min=0,max=5"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	RetryOnStatus      []int         `mapstructure:"retry_on_status"`
	BatchSize          int           `mapstructure:"batch_size" validate:"min=1,max=1000"`
	SyncOnStart        bool          `mapstructure:"sync_on_start"`
}

func DefaultConfig() *Config {
	return &Config{
		IndexName:     "events",
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		MaxIdleConns:  10,
		RetryOnStatus: []int{502, 503, 504, 429},
		BatchSize:     defaultBatchSize,
		SyncOnStart:   true,
	}
}

// Validate проверяет то, без чего клиент не создать.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", c.URL)
	}
	if c.IndexName == "" {
		return errors.New("index name is required")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout %s is shorter than 1s", c.Timeout)
	}
	return nil
}
