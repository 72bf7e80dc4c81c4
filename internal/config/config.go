package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort            string `mapstructure:"http_port"              validate:"required"`
	HTTPTimeout         int    `mapstructure:"http_timeout"`
	HTTPMaxBodyBytes    int64  `mapstructure:"http_max_body_bytes"`
	WebhookPath         string `mapstructure:"webhook_path"           validate:"required"`
	HTTPShutdownTimeout int    `mapstructure:"http_shutdown_timeout"`

	// Fallbacks used when a webhook does not carry its own identifiers.
	DefaultAssistantID    string `mapstructure:"default_assistant_id"    validate:"required"`
	DefaultOrganizationID string `mapstructure:"default_organization_id" validate:"required"`
	PhoneCountryCode      string `mapstructure:"phone_country_code"      validate:"required,startswith=+"`
	PhoneMatchDigits      int    `mapstructure:"phone_match_digits"      validate:"gte=7,lte=15"`

	PostgresHost            string `mapstructure:"postgres_host"              validate:"required"`
	PostgresUsername        string `mapstructure:"postgres_username"          validate:"required"`
	PostgresPassword        string `mapstructure:"postgres_password"          validate:"required"`
	PostgresPort            string `mapstructure:"postgres_port"              validate:"required"`
	PostgresDatabase        string `mapstructure:"postgres_database"          validate:"required"`
	DBIntervalCB            uint32 `mapstructure:"db_interval_cb"`
	DBConsecutiveFailuresCB uint32 `mapstructure:"db_consecutive_failures_cb"`

	KafkaEnabled               bool   `mapstructure:"kafka_enabled"`
	KafkaRequired              bool   `mapstructure:"kafka_required"`
	KafkaBootstrapServer       string `mapstructure:"kafka_bootstrap_server"        validate:"required_if=KafkaEnabled true"`
	KafkaUsername              string `mapstructure:"kafka_username"                validate:"required_if=KafkaEnabled true"`
	KafkaPassword              string `mapstructure:"kafka_password"                validate:"required_if=KafkaEnabled true"`
	KafkaSASLMechanism         string `mapstructure:"kafka_sasl_mechanism"          validate:"omitempty,oneof=SCRAM-SHA-256 SCRAM-SHA-512"`
	KafkaCallLogTopic          string `mapstructure:"kafka_call_log_topic"          validate:"required_if=KafkaEnabled true"`
	KafkaIntervalCB            uint32 `mapstructure:"kafka_interval_cb"`
	KafkaConsecutiveFailuresCB uint32 `mapstructure:"kafka_consecutive_failures_cb"`

	LogLevel    string `mapstructure:"log_level"`
	LogFilePath string `mapstructure:"log_file_path"`

	MinioEnabled                bool   `mapstructure:"minio_enabled"`
	MinioRequired               bool   `mapstructure:"minio_required"`
	MinioEndpointURL            string `mapstructure:"minio_endpoint_url"              validate:"required_if=MinioEnabled true"`
	MinioAccessKey              string `mapstructure:"minio_access_key"                validate:"required_if=MinioEnabled true"`
	MinioSecretKey              string `mapstructure:"minio_secret_key"                validate:"required_if=MinioEnabled true"`
	MinioBucketName             string `mapstructure:"minio_bucket_name"               validate:"required_if=MinioEnabled true"`
	MinioPathPrefix             string `mapstructure:"minio_path_prefix"`
	MinioSecure                 bool   `mapstructure:"minio_secure"`
	MinioMaxRetryAttempts       uint   `mapstructure:"minio_max_retry_attempts"`
	MinioRetryBackoffMinSeconds int    `mapstructure:"minio_retry_backoff_min_seconds"`
	MinioRetryBackoffMaxSeconds int    `mapstructure:"minio_retry_backoff_max_seconds"`
	MinioTimeout                int    `mapstructure:"minio_timeout"`
	MinioIntervalCB             uint32 `mapstructure:"minio_interval_cb"`
	MinioConsecutiveFailuresCB  uint32 `mapstructure:"minio_consecutive_failures_cb"`

	PoolSize           int `mapstructure:"pool_size"`
	DeadLetterPoolSize int `mapstructure:"dead_letter_pool_size"`

	DeadLetterMaxRetries int `mapstructure:"deadletter_max_retries"`
	DeadLetterLimit      int `mapstructure:"deadletter_limit"`
	DeadLetterInterval   int `mapstructure:"deadletter_interval"`
	DeadLetterRetryDelay int `mapstructure:"deadletter_retry_delay"`
	DeadLetterLease      int `mapstructure:"deadletter_lease"`

	HealthCheckerMonitorInterval int `mapstructure:"health_checker_monitor_interval"`

	PrometheusPort    string `mapstructure:"prometheus_port"`
	PrometheusTimeout int    `mapstructure:"prometheus_timeout"`
}

var Conf Config

// Load reads the environment (and an optional .env file) into Conf.
func Load() error {
	var cfg Config

	err := loadEnvConfig(viper.New(), &cfg)
	if err != nil {
		return err
	}

	Conf = cfg

	return nil
}

func loadEnvConfig(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setupDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError

		ok := errors.As(err, &configFileNotFoundError)
		if !ok {
			return err
		}
	}

	err = v.Unmarshal(cfg)
	if err != nil {
		return err
	}

	err = validator.New().Struct(cfg)
	if err != nil {
		return err
	}

	return nil
}

func setupDefaults(v *viper.Viper) {
	confType := reflect.TypeOf(Config{})
	for i := range confType.NumField() {
		field := confType.Field(i)
		v.SetDefault(field.Tag.Get("mapstructure"), "")
	}

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("HTTP_TIMEOUT", "30")
	v.SetDefault("HTTP_MAX_BODY_BYTES", "5242880")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10")
	v.SetDefault("WEBHOOK_PATH", "/webhooks/vapi")
	v.SetDefault("DEFAULT_ASSISTANT_ID", "default-assistant")
	v.SetDefault("DEFAULT_ORGANIZATION_ID", "default-organization")
	v.SetDefault("PHONE_COUNTRY_CODE", "+52")
	v.SetDefault("PHONE_MATCH_DIGITS", "10")
	v.SetDefault("DB_INTERVAL_CB", "30")
	v.SetDefault("DB_CONSECUTIVE_FAILURES_CB", "3")
	v.SetDefault("KAFKA_ENABLED", "false")
	v.SetDefault("KAFKA_REQUIRED", "false")
	v.SetDefault("KAFKA_SASL_MECHANISM", "SCRAM-SHA-512")
	v.SetDefault("KAFKA_CALL_LOG_TOPIC", "leadsync.call_log.reconciled")
	v.SetDefault("KAFKA_INTERVAL_CB", "30")
	v.SetDefault("KAFKA_CONSECUTIVE_FAILURES_CB", "5")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FILE_PATH", "./access.log")
	v.SetDefault("MINIO_ENABLED", "false")
	v.SetDefault("MINIO_REQUIRED", "false")
	v.SetDefault("MINIO_PATH_PREFIX", "transcripts")
	v.SetDefault("MINIO_SECURE", "true")
	v.SetDefault("MINIO_MAX_RETRY_ATTEMPTS", "3")
	v.SetDefault("MINIO_RETRY_BACKOFF_MIN_SECONDS", "1")
	v.SetDefault("MINIO_RETRY_BACKOFF_MAX_SECONDS", "10")
	v.SetDefault("MINIO_TIMEOUT", "60")
	v.SetDefault("MINIO_INTERVAL_CB", "300")
	v.SetDefault("MINIO_CONSECUTIVE_FAILURES_CB", "3")
	v.SetDefault("POOL_SIZE", "10")
	v.SetDefault("DEAD_LETTER_POOL_SIZE", "3")
	v.SetDefault("DEADLETTER_MAX_RETRIES", "10")
	v.SetDefault("DEADLETTER_LIMIT", "100")
	v.SetDefault("DEADLETTER_INTERVAL", "1")
	v.SetDefault("DEADLETTER_RETRY_DELAY", "5")
	v.SetDefault("DEADLETTER_LEASE", "15")
	v.SetDefault("HEALTH_CHECKER_MONITOR_INTERVAL", "60")
	v.SetDefault("PROMETHEUS_PORT", "2112")
	v.SetDefault("PROMETHEUS_TIMEOUT", "60")
}
