package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jittakal/avrobq/internal/config/dto"
)

// FlagKeys maps command line flag names to configuration keys. Flags that
// were set on the command line take precedence over file and environment.
var FlagKeys = map[string]string{
	"avroschema":  "job.schema",
	"file":        "job.inputs",
	"output":      "job.output",
	"mapsize":     "processing.max_part_size_mb",
	"rowsize":     "job.max_row_size_bytes",
	"workers":     "processing.worker_pool_size",
	"compression": "job.compression",
}

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlags binds the flags named in FlagKeys that exist in fs.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load loads configuration from file, environment variables and bound flags
// and validates it for a conversion run.
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	config, err := l.Read(path)
	if err != nil {
		return nil, err
	}
	if err := l.Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// Read loads configuration like Load without validating the job, for
// commands that only need storage and logging settings.
func (l *Loader) Read(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Only expand values containing the ${...} pattern
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Job.Inputs = splitInputs(config.Job.Inputs)
	return &config, nil
}

// splitInputs accepts both list values and the comma-separated form the
// -f flag and APP_JOB_INPUTS use.
func splitInputs(inputs []string) []string {
	var out []string
	for _, in := range inputs {
		for _, part := range strings.Split(in, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	l.v.SetDefault("application.name", "avrobq")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Job defaults
	l.v.SetDefault("job.schema_file", "schema.bqsc")
	l.v.SetDefault("job.max_row_size_bytes", 2*1024*1024)
	l.v.SetDefault("job.input_suffix", ".avro")
	l.v.SetDefault("job.compression", "none")

	// Processing defaults
	l.v.SetDefault("processing.worker_pool_size", 4)
	l.v.SetDefault("processing.max_part_size_mb", 512)
	l.v.SetDefault("processing.max_records_per_part", 0)

	// Storage defaults
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)
	l.v.SetDefault("storage.gcs.use_default_credential", true)

	// Kafka defaults
	l.v.SetDefault("kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("kafka.sasl_mechanism", "PLAIN")
	l.v.SetDefault("kafka.client_id", "avrobq")
	l.v.SetDefault("kafka.confluent_wire_format", false)
	l.v.SetDefault("kafka.fetch_timeout_seconds", 30)

	// Retry defaults
	l.v.SetDefault("retry.max_attempts", 3)
	l.v.SetDefault("retry.initial_backoff_ms", 100)
	l.v.SetDefault("retry.max_backoff_ms", 5000)
	l.v.SetDefault("retry.backoff_multiplier", 2.0)

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stderr")
	l.v.SetDefault("observability.metrics.enabled", false)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")

	// Shutdown defaults
	l.v.SetDefault("shutdown.grace_period_seconds", 30)
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if err := config.Job.Validate(); err != nil {
		return err
	}
	if err := config.Processing.Validate(); err != nil {
		return err
	}

	// Backend settings are only checked when a reference needs them
	refs := append([]string{config.Job.Schema, config.Job.Output}, config.Job.Inputs...)
	for _, ref := range refs {
		switch {
		case strings.HasPrefix(ref, "kafka://"):
			if err := config.Kafka.Validate(); err != nil {
				return err
			}
		case strings.HasPrefix(ref, "wasbs://"):
			if err := config.Storage.Azure.Validate(); err != nil {
				return err
			}
		case strings.HasPrefix(ref, "s3://"):
			if config.Storage.S3.Region == "" {
				return errors.New("storage.s3.region is required for s3:// locations")
			}
		}
	}
	if strings.HasPrefix(config.Job.Schema, "kafka://") || strings.HasPrefix(config.Job.Output, "kafka://") {
		return errors.New("kafka:// is only supported for job inputs")
	}

	if config.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid retry max attempts: %d", config.Retry.MaxAttempts)
	}

	switch config.Observability.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", config.Observability.Logging.Format)
	}

	if config.Observability.Metrics.Enabled {
		if config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", config.Observability.Metrics.Port)
		}
		if config.Observability.Health.Port < 1 || config.Observability.Health.Port > 65535 {
			return fmt.Errorf("invalid health port: %d", config.Observability.Health.Port)
		}
	}

	return nil
}
