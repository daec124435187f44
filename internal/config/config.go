// Package config собирает настройки сервиса из config.yaml, .env и переменных окружения EVENTS_*.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/spf13/viper"
)

const envPrefix = "EVENTS"

type Config struct {
	App        AppConfig      `mapstructure:"app"`
	HTTP       ServerConfig   `mapstructure:"http"`
	GRPC       ServerConfig   `mapstructure:"grpc"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Health     ServerConfig   `mapstructure:"health"`
	Log        logger.Config  `mapstructure:"log"`
	Store      StoreConfig    `mapstructure:"store"`
	OpenSearch client.Config  `mapstructure:"opensearch"`
	Snapshot   SnapshotConfig `mapstructure:"snapshot"`
	Query      QueryConfig    `mapstructure:"query"`
	Views      ViewsConfig    `mapstructure:"views"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name" validate:"required"`
	Version         string        `mapstructure:"version"`
	Environment     string        `mapstructure:"environment" validate:"oneof=development test production"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type SnapshotConfig struct {
	Source          string        `mapstructure:"source" validate:"required,oneof=store opensearch"`
	RefreshSchedule string        `mapstructure:"refresh_schedule" validate:"required"`
	MaxAge          time.Duration `mapstructure:"max_age" validate:"min=1s"`
}

type QueryConfig struct {
	PageSize   int    `mapstructure:"page_size" validate:"min=1,max=100"`
	PageWindow int    `mapstructure:"page_window" validate:"min=1,max=20"`
	Latest     int    `mapstructure:"latest" validate:"min=1,max=50"`
	Locale     string `mapstructure:"locale" validate:"required,bcp47_language_tag"`
	Timezone   string `mapstructure:"timezone" validate:"required,timezone"`
}

type ViewsConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"min=1m"`
	MaxViews      int           `mapstructure:"max_views" validate:"min=1"`
	PruneSchedule string        `mapstructure:"prune_schedule" validate:"required"`
}

// Location возвращает часовой пояс для периодов по дате.
func (q QueryConfig) Location() (*time.Location, error) {
	return time.LoadLocation(q.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "event-listing")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.addr", "0.0.0.0:9091")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", "0.0.0.0:9090")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.addr", "0.0.0.0:8081")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_path", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:events.db?_foreign_keys=on")

	osDefaults := client.DefaultConfig()
	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.url", "")
	v.SetDefault("opensearch.index_name", osDefaults.IndexName)
	v.SetDefault("opensearch.timeout", osDefaults.Timeout)
	v.SetDefault("opensearch.max_retries", osDefaults.MaxRetries)
	v.SetDefault("opensearch.max_idle_conns", osDefaults.MaxIdleConns)
	v.SetDefault("opensearch.insecure_skip_verify", osDefaults.InsecureSkipVerify)
	v.SetDefault("opensearch.retry_on_status", osDefaults.RetryOnStatus)
	v.SetDefault("opensearch.batch_size", osDefaults.BatchSize)
	v.SetDefault("opensearch.sync_on_start", osDefaults.SyncOnStart)

	v.SetDefault("snapshot.source", "store")
	v.SetDefault("snapshot.refresh_schedule", "@every 1m")
	v.SetDefault("snapshot.max_age", "5m")

	v.SetDefault("query.page_size", 6)
	v.SetDefault("query.page_window", 5)
	v.SetDefault("query.latest", 5)
	v.SetDefault("query.locale", "uk")
	v.SetDefault("query.timezone", "UTC")

	v.SetDefault("views.ttl", "30m")
	v.SetDefault("views.max_views", 10000)
	v.SetDefault("views.prune_schedule", "@every 1m")
}

// Load читает конфигурацию. path может быть пустым: тогда ищется ./config.yaml,
// а его отсутствие не считается ошибкой. Переменные из .env подхватываются,
// но не перекрывают уже заданные в окружении.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.OpenSearch.Enabled {
		if err := c.OpenSearch.Validate(); err != nil {
			return fmt.Errorf("invalid opensearch config: %w", err)
		}
	}
	if c.Snapshot.Source == "opensearch" && !c.OpenSearch.Enabled {
		return fmt.Errorf("snapshot source opensearch requires opensearch.enabled")
	}
	return nil
}
