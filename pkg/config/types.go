package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent turntable configuration stored as
// config.toml in the .turntable/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Storage     StorageConfig     `toml:"storage"`
	Poller      PollerConfig      `toml:"poller"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
}

// ClientConfig holds settings for talking to the chat backend.
type ClientConfig struct {
	// BaseURL is the backend root (scheme + host + port).
	BaseURL  string `toml:"base_url,omitempty"`
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`

	// Timeout bounds non-streaming requests, e.g. "30s".
	Timeout string `toml:"timeout,omitempty"`
}

// StorageConfig selects where completed turns are recorded locally.
type StorageConfig struct {
	// Driver is one of "inmemory", "sqlite" or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// PollerConfig tunes the file status poller. Durations are Go duration
// strings.
type PollerConfig struct {
	InitialInterval string  `toml:"initial_interval,omitempty"`
	MaxInterval     string  `toml:"max_interval,omitempty"`
	Factor          float64 `toml:"factor,omitempty"`
	MaxRetries      uint    `toml:"max_retries,omitempty"`
}

// EventStreamConfig selects the turn event publisher.
type EventStreamConfig struct {
	// Publisher is one of "nop" or "kafka".
	Publisher    string `toml:"publisher,omitempty"`
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug      bool   `toml:"debug,omitempty"`
	JSON       bool   `toml:"json,omitempty"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  uint   `toml:"max_size_mb,omitempty"`
	MaxBackups uint   `toml:"max_backups,omitempty"`
}

// Brokers splits the comma separated broker list.
func (c EventStreamConfig) Brokers() []string {
	var out []string
	for b := range strings.SplitSeq(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.provider": {
		get: func(c *Config) string { return c.Client.Provider },
		set: func(c *Config, v string) error { c.Client.Provider = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: durationSetter("client.timeout", func(c *Config, v string) { c.Client.Timeout = v }),
	},
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case StorageInMemory, StorageSQLite, StoragePostgres:
				c.Storage.Driver = v
				return nil
			}
			return fmt.Errorf("invalid value for storage.driver: %q (available: %s, %s, %s)",
				v, StorageInMemory, StorageSQLite, StoragePostgres)
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"poller.initial_interval": {
		get: func(c *Config) string { return c.Poller.InitialInterval },
		set: durationSetter("poller.initial_interval", func(c *Config, v string) { c.Poller.InitialInterval = v }),
	},
	"poller.max_interval": {
		get: func(c *Config) string { return c.Poller.MaxInterval },
		set: durationSetter("poller.max_interval", func(c *Config, v string) { c.Poller.MaxInterval = v }),
	},
	"poller.factor": {
		get: func(c *Config) string {
			if c.Poller.Factor == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Poller.Factor, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for poller.factor: %w", err)
			}
			if f < 1 {
				return fmt.Errorf("invalid value for poller.factor: %v is below 1", f)
			}
			c.Poller.Factor = f
			return nil
		},
	},
	"poller.max_retries": {
		get: func(c *Config) string { return formatUint(c.Poller.MaxRetries) },
		set: uintSetter("poller.max_retries", func(c *Config, n uint) { c.Poller.MaxRetries = n }),
	},
	"eventstream.publisher": {
		get: func(c *Config) string { return c.EventStream.Publisher },
		set: func(c *Config, v string) error {
			switch v {
			case PublisherNop, PublisherKafka:
				c.EventStream.Publisher = v
				return nil
			}
			return fmt.Errorf("invalid value for eventstream.publisher: %q (available: %s, %s)",
				v, PublisherNop, PublisherKafka)
		},
	},
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return c.EventStream.KafkaBrokers },
		set: func(c *Config, v string) error { c.EventStream.KafkaBrokers = v; return nil },
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
	"log.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Debug) },
		set: boolSetter("log.debug", func(c *Config, b bool) { c.Log.Debug = b }),
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: boolSetter("log.json", func(c *Config, b bool) { c.Log.JSON = b }),
	},
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"log.max_size_mb": {
		get: func(c *Config) string { return formatUint(c.Log.MaxSizeMB) },
		set: uintSetter("log.max_size_mb", func(c *Config, n uint) { c.Log.MaxSizeMB = n }),
	},
	"log.max_backups": {
		get: func(c *Config) string { return formatUint(c.Log.MaxBackups) },
		set: uintSetter("log.max_backups", func(c *Config, n uint) { c.Log.MaxBackups = n }),
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func uintSetter(key string, apply func(*Config, uint)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		apply(c, uint(n))
		return nil
	}
}

func boolSetter(key string, apply func(*Config, bool)) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		apply(c, b)
		return nil
	}
}

func durationSetter(key string, apply func(*Config, string)) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid value for %s: must be positive", key)
		}
		apply(c, v)
		return nil
	}
}
