package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/turntable/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TURNTABLE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TURNTABLE_CLIENT_BASE_URL, TURNTABLE_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TURNTABLE_CLIENT_MODEL, TURNTABLE_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("TURNTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.provider", d.Client.Provider)
	v.SetDefault("client.model", d.Client.Model)
	v.SetDefault("client.timeout", d.Client.Timeout)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("poller.initial_interval", d.Poller.InitialInterval)
	v.SetDefault("poller.max_interval", d.Poller.MaxInterval)
	v.SetDefault("poller.factor", d.Poller.Factor)
	v.SetDefault("poller.max_retries", d.Poller.MaxRetries)

	v.SetDefault("eventstream.publisher", d.EventStream.Publisher)
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// Resolve reads the effective configuration out of v, after flags, env
// and file values have been layered over the defaults.
func Resolve(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			BaseURL:  v.GetString("client.base_url"),
			Provider: v.GetString("client.provider"),
			Model:    v.GetString("client.model"),
			Timeout:  v.GetString("client.timeout"),
		},
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Poller: PollerConfig{
			InitialInterval: v.GetString("poller.initial_interval"),
			MaxInterval:     v.GetString("poller.max_interval"),
			Factor:          v.GetFloat64("poller.factor"),
			MaxRetries:      v.GetUint("poller.max_retries"),
		},
		EventStream: EventStreamConfig{
			Publisher:    v.GetString("eventstream.publisher"),
			KafkaBrokers: v.GetString("eventstream.kafka_brokers"),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
		Log: LogConfig{
			Debug:      v.GetBool("log.debug"),
			JSON:       v.GetBool("log.json"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetUint("log.max_size_mb"),
			MaxBackups: v.GetUint("log.max_backups"),
		},
	}
}
