// Package config provides configuration loading for the action lifecycle service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Temporal TemporalConfig `yaml:"temporal"`
	Store    StoreConfig    `yaml:"store"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// HTTPConfig configures the API listener
type HTTPConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// AllowedOrigins feeds the CORS middleware
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TemporalConfig configures the Temporal client and worker
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
	// Enabled turns the workflow signaler and routes on
	Enabled bool `yaml:"enabled"`
}

// StoreConfig selects the action store
type StoreConfig struct {
	// Driver is "memory" or "dynamo"
	Driver string       `yaml:"driver"`
	Dynamo DynamoConfig `yaml:"dynamo"`
}

type DynamoConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	ActionsTable string `yaml:"actions_table"`
	TasksTable   string `yaml:"tasks_table"`
}

// KafkaConfig configures the event producer and command consumer
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	EventsTopic   string   `yaml:"events_topic"`
	CommandsTopic string   `yaml:"commands_topic"`
	GroupID       string   `yaml:"group_id"`
}

type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
}

const (
	DriverMemory = "memory"
	DriverDynamo = "dynamo"
)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "action-lifecycle",
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Dynamo: DynamoConfig{
				Region:       "us-east-1",
				ActionsTable: "actions",
				TasksTable:   "tasks",
			},
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			EventsTopic:   "action-events",
			CommandsTopic: "action-commands",
			GroupID:       "action-lifecycle",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch c.Store.Driver {
	case DriverMemory:
		// The worker and consumer run as separate processes and would each
		// see their own empty store.
		if c.Temporal.Enabled || c.Kafka.Enabled {
			return fmt.Errorf("store.driver %q is process-local; use %q when temporal or kafka is enabled", DriverMemory, DriverDynamo)
		}
	case DriverDynamo:
		if c.Store.Dynamo.ActionsTable == "" || c.Store.Dynamo.TasksTable == "" {
			return fmt.Errorf("store.dynamo.actions_table and store.dynamo.tasks_table are required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverMemory, DriverDynamo, c.Store.Driver)
	}
	if c.Temporal.Enabled && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
		return fmt.Errorf("temporal.host_port and temporal.task_queue are required")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required")
		}
		if c.Kafka.EventsTopic == "" {
			return fmt.Errorf("kafka.events_topic is required")
		}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads path (or the defaults when path is empty), applies .env and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()
	if path != "" {
		var err error
		if config, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables. lookup is
// os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.HTTP.AllowedOrigins = SplitCSV(v)
	}

	str("TEMPORAL_HOSTPORT", &c.Temporal.HostPort)
	str("TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	str("TEMPORAL_TASK_QUEUE", &c.Temporal.TaskQueue)
	flag("TEMPORAL_ENABLED", &c.Temporal.Enabled)

	str("STORE_DRIVER", &c.Store.Driver)
	str("AWS_REGION", &c.Store.Dynamo.Region)
	str("DYNAMO_ENDPOINT", &c.Store.Dynamo.Endpoint)
	str("DYNAMO_ACTIONS_TABLE", &c.Store.Dynamo.ActionsTable)
	str("DYNAMO_TASKS_TABLE", &c.Store.Dynamo.TasksTable)

	flag("KAFKA_ENABLED", &c.Kafka.Enabled)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = SplitCSV(v)
	}
	str("KAFKA_TOPIC_EVENTS", &c.Kafka.EventsTopic)
	str("KAFKA_TOPIC_COMMANDS", &c.Kafka.CommandsTopic)
	str("KAFKA_GROUP_ID", &c.Kafka.GroupID)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
