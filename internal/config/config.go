package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
// The env tag names the variable each field is read from.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" validate:"required"`
	ModelVersion    string        `env:"MODEL_VERSION" validate:"required"`
	RegistryPath    string        `env:"REGISTRY_PATH" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string        `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`

	// Live stream pipeline. Kafka settings are only checked when enabled.
	StreamEnabled        bool          `env:"STREAM_ENABLED"`
	KafkaBrokers         []string      `env:"KAFKA_BROKERS"`
	KafkaSourceTopic     string        `env:"KAFKA_SOURCE_TOPIC"`
	KafkaSinkTopic       string        `env:"KAFKA_SINK_TOPIC"`
	KafkaGroupID         string        `env:"KAFKA_GROUP_ID"`
	BatchSize            int           `env:"BATCH_SIZE"`
	BatchFlushInterval   time.Duration `env:"BATCH_FLUSH_INTERVAL"`
	StreamHorizonMinutes int           `env:"STREAM_HORIZON_MINUTES" validate:"gt=0"`
	StreamWindowSize     int           `env:"STREAM_WINDOW_SIZE" validate:"gt=0,lte=10000"`
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}()

// Load reads configuration from environment variables, applying defaults where unset.
// When CONFIG_FILE names a YAML file, its keys fill in variables the environment
// leaves unset.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return nil, err
		}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	streamEnabled, err := parseBool("STREAM_ENABLED", false)
	if err != nil {
		return nil, err
	}

	horizon, err := parseInt("STREAM_HORIZON_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	windowSize, err := parseInt("STREAM_WINDOW_SIZE", 24)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		ModelVersion:    sharedcfg.EnvOrDefault("MODEL_VERSION", "unet-baseline-v1"),
		RegistryPath:    sharedcfg.EnvOrDefault("REGISTRY_PATH", "ml/models/registry.json"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,

		StreamEnabled:        streamEnabled,
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:     sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "space-weather-telemetry"),
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geomag-forecasts"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geomag-nowcast"),
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,
		StreamHorizonMinutes: horizon,
		StreamWindowSize:     windowSize,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %q fails %s", fe.Field(), fmt.Sprint(fe.Value()), fe.ActualTag())
		}
		return err
	}

	if !c.StreamEnabled {
		return nil
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when STREAM_ENABLED is true")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required when STREAM_ENABLED is true")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when STREAM_ENABLED is true")
	}
	return nil
}

// applyFile exports the keys of a flat YAML file (KEY: value) into the process
// environment. Variables that are already set and non-empty are left alone.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}

	for key, raw := range values {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			continue
		}
		if err := os.Setenv(key, fileValue(raw)); err != nil {
			return fmt.Errorf("apply CONFIG_FILE key %s: %w", key, err)
		}
	}
	return nil
}

// fileValue renders a YAML scalar or list the way it would be written in an
// environment variable. Lists become comma separated, which suits KAFKA_BROKERS.
func fileValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
