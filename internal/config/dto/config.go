package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Job           JobConfig           `mapstructure:"job"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// JobConfig describes one conversion run.
type JobConfig struct {
	// Schema is the location of the .avsc file: a local path or a
	// file://, gs://, s3:// or wasbs:// URI.
	Schema string `mapstructure:"schema"`
	// Inputs are record sources: files, directories/prefixes or kafka://topic.
	Inputs []string `mapstructure:"inputs"`
	// Output is the directory or prefix the row parts are written under.
	Output     string `mapstructure:"output"`
	SchemaFile string `mapstructure:"schema_file"`
	// MaxRowSizeBytes limits the UTF-8 encoded length of one row; longer
	// rows are skipped. BigQuery's own row limit is measured in bytes.
	MaxRowSizeBytes int    `mapstructure:"max_row_size_bytes"`
	InputSuffix     string `mapstructure:"input_suffix"`
	// Compression is applied to each part: "gzip" or "none".
	Compression string `mapstructure:"compression"`
}

// ProcessingConfig contains processing settings
type ProcessingConfig struct {
	WorkerPoolSize    int   `mapstructure:"worker_pool_size"`
	MaxPartSizeMB     int64 `mapstructure:"max_part_size_mb"`
	MaxRecordsPerPart int   `mapstructure:"max_records_per_part"`
}

// StorageConfig contains per-scheme storage client configuration
type StorageConfig struct {
	S3    S3Config    `mapstructure:"s3"`
	Azure AzureConfig `mapstructure:"azure"`
	GCS   GCSConfig   `mapstructure:"gcs"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Endpoint    string `mapstructure:"endpoint"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	ProjectID            string `mapstructure:"project_id"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	Endpoint             string `mapstructure:"endpoint"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// KafkaConfig contains Kafka-related configuration for kafka:// inputs
type KafkaConfig struct {
	BootstrapServers    []string `mapstructure:"bootstrap_servers"`
	SecurityProtocol    string   `mapstructure:"security_protocol"`
	SASLMechanism       string   `mapstructure:"sasl_mechanism"`
	SASLUsername        string   `mapstructure:"sasl_username"`
	SASLPassword        string   `mapstructure:"sasl_password"`
	AWSRegion           string   `mapstructure:"aws_region"`
	ClientID            string   `mapstructure:"client_id"`
	ConfluentWireFormat bool     `mapstructure:"confluent_wire_format"`
	FetchTimeoutSeconds int      `mapstructure:"fetch_timeout_seconds"`
}

// RetryConfig contains retry settings for storage writes
type RetryConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	InitialBackoffMS  int     `mapstructure:"initial_backoff_ms"`
	MaxBackoffMS      int     `mapstructure:"max_backoff_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// GracePeriod returns the shutdown grace period.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// MaxPartSizeBytes returns the part size limit in bytes.
func (c ProcessingConfig) MaxPartSizeBytes() int64 {
	return c.MaxPartSizeMB * 1024 * 1024
}

// Validate validates the job description.
func (c *JobConfig) Validate() error {
	if c.Schema == "" {
		return fmt.Errorf("job schema is required")
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("at least one job input is required")
	}
	for i, in := range c.Inputs {
		if in == "" {
			return fmt.Errorf("job input %d is empty", i)
		}
	}
	if c.Output == "" {
		return fmt.Errorf("job output is required")
	}
	if c.MaxRowSizeBytes <= 0 {
		return fmt.Errorf("job max row size must be positive, got %d", c.MaxRowSizeBytes)
	}
	switch c.Compression {
	case "", "none", "gzip":
	default:
		return fmt.Errorf("unsupported job compression: %s", c.Compression)
	}
	return nil
}

// Validate validates processing settings.
func (c *ProcessingConfig) Validate() error {
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1, got %d", c.WorkerPoolSize)
	}
	if c.MaxPartSizeMB < 0 {
		return fmt.Errorf("max part size must not be negative, got %d", c.MaxPartSizeMB)
	}
	if c.MaxRecordsPerPart < 0 {
		return fmt.Errorf("max records per part must not be negative, got %d", c.MaxRecordsPerPart)
	}
	return nil
}

// Validate validates Kafka configuration.
func (c *KafkaConfig) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return fmt.Errorf("kafka bootstrap servers are required")
	}
	switch c.SecurityProtocol {
	case "PLAINTEXT", "SSL":
	case "SASL_PLAINTEXT", "SASL_SSL":
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
			if c.SASLUsername == "" || c.SASLPassword == "" {
				return fmt.Errorf("kafka sasl username and password are required for %s", c.SASLMechanism)
			}
		case "AWS_MSK_IAM":
			if c.AWSRegion == "" {
				return fmt.Errorf("kafka aws region is required for AWS_MSK_IAM")
			}
		default:
			return fmt.Errorf("unsupported kafka sasl mechanism: %s", c.SASLMechanism)
		}
	default:
		return fmt.Errorf("unsupported kafka security protocol: %s", c.SecurityProtocol)
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.AccountKey == "" {
		return fmt.Errorf("azure account key is required")
	}
	return nil
}
