package config

// Storage drivers.
const (
	StorageInMemory = "inmemory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Event publishers.
const (
	PublisherNop   = "nop"
	PublisherKafka = "kafka"
)

const (
	defaultBaseURL  = "http://localhost:8000"
	defaultProvider = "ollama"
	defaultModel    = "qwen3"
	defaultTimeout  = "30s"

	defaultStorageDriver = StorageSQLite
	defaultSQLitePath    = "turntable.sqlite"

	defaultPollInitial    = "500ms"
	defaultPollMax        = "3s"
	defaultPollFactor     = 1.2
	defaultPollMaxRetries = 60

	defaultPublisher  = PublisherNop
	defaultKafkaTopic = "turntable.turns"

	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:  defaultBaseURL,
			Provider: defaultProvider,
			Model:    defaultModel,
			Timeout:  defaultTimeout,
		},
		Storage: StorageConfig{
			Driver:     defaultStorageDriver,
			SQLitePath: defaultSQLitePath,
		},
		Poller: PollerConfig{
			InitialInterval: defaultPollInitial,
			MaxInterval:     defaultPollMax,
			Factor:          defaultPollFactor,
			MaxRetries:      defaultPollMaxRetries,
		},
		EventStream: EventStreamConfig{
			Publisher:  defaultPublisher,
			KafkaTopic: defaultKafkaTopic,
		},
		Log: LogConfig{
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
