// Package config loads the daemon configuration: built-in defaults, an
// optional TOML file, then MINTSNIPER_ environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full daemon configuration.
type Config struct {
	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`

	Server struct {
		MetricsAddr   string        `koanf:"metrics_addr"`
		ShutdownGrace time.Duration `koanf:"shutdown_grace"`
	} `koanf:"server"`

	Postgres struct {
		DSN string `koanf:"dsn"`
	} `koanf:"postgres"`

	ClickHouse struct {
		DSN string `koanf:"dsn"`
	} `koanf:"clickhouse"`

	Feed struct {
		PumpStreamURL  string        `koanf:"pumpstream_url"`
		RaydiumURL     string        `koanf:"raydium_url"`
		RaydiumToken   string        `koanf:"raydium_token"`
		BackoffInitial time.Duration `koanf:"backoff_initial"`
		BackoffMax     time.Duration `koanf:"backoff_max"`
		FlushInterval  time.Duration `koanf:"flush_interval"`
		IndexMaxAge    time.Duration `koanf:"index_max_age"`
		EvictInterval  time.Duration `koanf:"evict_interval"`
	} `koanf:"feed"`

	Chat struct {
		QueueCapacity  int             `koanf:"queue_capacity"`
		BackoffInitial time.Duration   `koanf:"backoff_initial"`
		BackoffMax     time.Duration   `koanf:"backoff_max"`
		Sessions       []SessionConfig `koanf:"sessions"`
	} `koanf:"chat"`

	Extract struct {
		Blacklist        []string      `koanf:"blacklist"`
		MinLookupLen     int           `koanf:"min_lookup_len"`
		LookupTimeout    time.Duration `koanf:"lookup_timeout"`
		StrictValidation bool          `koanf:"strict_validation"`
		LookupEndpoint   string        `koanf:"lookup_endpoint"`
		LookupAPIKey     string        `koanf:"lookup_api_key"`
		LookupModel      string        `koanf:"lookup_model"`
	} `koanf:"extract"`

	Dispatch struct {
		DedupWindow   time.Duration `koanf:"dedup_window"`
		SweepInterval time.Duration `koanf:"sweep_interval"`
		Workers       int           `koanf:"workers"`
	} `koanf:"dispatch"`

	Buy struct {
		GatewayURL   string        `koanf:"gateway_url"`
		GatewayToken string        `koanf:"gateway_token"`
		Timeout      time.Duration `koanf:"timeout"`
	} `koanf:"buy"`
}

// SessionConfig declares one chat gateway session.
type SessionConfig struct {
	Platform  string `koanf:"platform"`
	Label     string `koanf:"label"`
	URL       string `koanf:"url"`
	AuthToken string `koanf:"auth_token"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":               "info",
		"log.pretty":              false,
		"server.metrics_addr":     ":9090",
		"server.shutdown_grace":   "10s",
		"feed.pumpstream_url":     "wss://pumpportal.fun/api/data",
		"feed.backoff_initial":    "1s",
		"feed.backoff_max":        "15s",
		"feed.flush_interval":     "5s",
		"feed.index_max_age":      "24h",
		"feed.evict_interval":     "1m",
		"chat.queue_capacity":     1024,
		"chat.backoff_initial":    "1s",
		"chat.backoff_max":        "15s",
		"extract.min_lookup_len":  12,
		"extract.lookup_timeout":  "3s",
		"dispatch.dedup_window":   "15m",
		"dispatch.sweep_interval": "1m",
		"dispatch.workers":        4,
		"buy.timeout":             "5s",
	}
}

// Load reads the configuration. An empty path tries the default locations;
// a missing file is not an error, the defaults plus environment apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		for _, path := range []string{"./mintsniper.toml", "$HOME/.mintsniper.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("MINTSNIPER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MINTSNIPER_")), "_", ".", -1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Dispatch.DedupWindow <= 0 {
		return fmt.Errorf("dispatch.dedup_window must be positive")
	}
	if cfg.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch.workers must be positive")
	}
	if cfg.Chat.QueueCapacity <= 0 {
		return fmt.Errorf("chat.queue_capacity must be positive")
	}
	for i, s := range cfg.Chat.Sessions {
		if s.Platform != "TELEGRAM" && s.Platform != "DISCORD" {
			return fmt.Errorf("chat.sessions[%d]: unknown platform %q", i, s.Platform)
		}
		if s.URL == "" {
			return fmt.Errorf("chat.sessions[%d]: url is required", i)
		}
	}
	if cfg.Feed.RaydiumURL != "" && cfg.Feed.RaydiumToken == "" {
		return fmt.Errorf("feed.raydium_token is required when feed.raydium_url is set")
	}
	return nil
}
