package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// OpsServerPortEnv is the environment variable for the operator HTTP API port.
	OpsServerPortEnv = "OPS_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// StreamQueueURLEnv is the environment variable for the change-stream SQS queue URL.
	StreamQueueURLEnv = "STREAM_QUEUE_URL"

	// ShipmentQueueURLEnv is the environment variable for the shipment-file FIFO queue URL.
	ShipmentQueueURLEnv = "SHIPMENT_QUEUE_URL"

	// S3EventQueueURLEnv is the environment variable for the raw S3 notification queue URL.
	S3EventQueueURLEnv = "S3_EVENT_QUEUE_URL"

	// RetryQueueURLEnv is the environment variable for the retry queue URL.
	RetryQueueURLEnv = "RETRY_QUEUE_URL"

	// AlertTopicARNEnv is the environment variable for the operator alert SNS topic.
	AlertTopicARNEnv = "ALERT_TOPIC_ARN"

	// CWURLEnv is the environment variable for the CargoWise eAdapter endpoint.
	CWURLEnv = "CW_URL"

	// CWAuthorizationEnv is the environment variable for the CargoWise auth token.
	CWAuthorizationEnv = "CW_AUTHORIZATION"

	// WTURLEnv is the environment variable for the WorldTrak SOAP endpoint.
	WTURLEnv = "WT_URL"

	// WTSoapUsernameEnv is the environment variable for the WorldTrak SOAP username.
	WTSoapUsernameEnv = "WT_SOAP_USERNAME"

	// WTSoapPasswordEnv is the environment variable for the WorldTrak SOAP password.
	WTSoapPasswordEnv = "WT_SOAP_PASSWORD"

	// DocumentAPIURLEnv is the environment variable for the document retrieval API base URL.
	DocumentAPIURLEnv = "DOCUMENT_API_URL"

	// CustomerAllowListEnv is a comma-separated list of bill-to numbers this bridge serves.
	CustomerAllowListEnv = "CUSTOMER_ALLOW_LIST"

	// RetryPromotionThresholdEnv is the retry_count value at which a FAILED
	// attempt is still eligible for automatic promotion back to READY.
	RetryPromotionThresholdEnv = "RETRY_PROMOTION_THRESHOLD"

	// RegistrationCustomerNoEnv is the bill-to account new shipments are registered under.
	RegistrationCustomerNoEnv = "REGISTRATION_CUSTOMER_NO"

	// RegistrationStationEnv is the originating station code for registered shipments.
	RegistrationStationEnv = "REGISTRATION_STATION"

	// MilestoneTableEnv is the logical source-table name for milestone change rows.
	MilestoneTableEnv = "MILESTONE_TABLE"

	// AparFailureTableEnv is the logical source-table name for service-failure change rows.
	AparFailureTableEnv = "APAR_FAILURE_TABLE"

	// CostTableEnv is the logical source-table name for cost line change rows.
	CostTableEnv = "COST_TABLE"

	// DocumentTableEnv is the logical source-table name for shipment-file change rows.
	DocumentTableEnv = "DOCUMENT_TABLE"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	OpsServer     Server
	MetricsServer Server
	AWS           AWSConfig
	CargoWise     Endpoint
	WorldTrak     SOAPEndpoint
	DocumentAPI   Endpoint
	Pipeline      Pipeline
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region           string
	Endpoint         string
	StreamQueueURL   string
	ShipmentQueueURL string
	S3EventQueueURL  string
	RetryQueueURL    string
	AlertTopicARN    string
}

// Endpoint represents an external HTTP endpoint with token authorization.
type Endpoint struct {
	URL           string
	Authorization string
}

// SOAPEndpoint represents an external SOAP endpoint with basic credentials.
type SOAPEndpoint struct {
	URL      string
	Username string
	Password string
}

// Pipeline represents per-pipeline eligibility and retry settings.
type Pipeline struct {
	CustomerAllowList []string
	// RetryPromotionThreshold is the retry_count at or below which a FAILED
	// attempt is promoted back to READY automatically. The default of 0 means
	// one automatic retry; further failures require manual intervention.
	RetryPromotionThreshold int
	// RegistrationCustomerNo and RegistrationStation identify the account and
	// station new shipments are registered under in the legacy system.
	RegistrationCustomerNo string
	RegistrationStation    string
	SourceTables           SourceTables
}

// SourceTables maps logical source-table names onto pipeline kinds.
type SourceTables struct {
	Milestone   string
	AparFailure string
	Cost        string
	Document    string
}

// DB represents database configuration settings.
type DB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	// Validate database configuration
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		OpsServerPortEnv:     c.OpsServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		OpsServerPortEnv:     c.OpsServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	// Validate external endpoints
	if err := allNonEmpty(map[string]string{
		CWURLEnv:           c.CargoWise.URL,
		CWAuthorizationEnv: c.CargoWise.Authorization,
		WTURLEnv:           c.WorldTrak.URL,
	}); err != nil {
		return fmt.Errorf("external endpoint configuration incomplete: %w", err)
	}

	// Validate AWS configuration
	if err := allNonEmpty(map[string]string{
		StreamQueueURLEnv: c.AWS.StreamQueueURL,
		AlertTopicARNEnv:  c.AWS.AlertTopicARN,
	}); err != nil {
		return fmt.Errorf("AWS configuration incomplete: %w", err)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if val, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvOrDefault(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsList(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     os.Getenv(DBPortEnv),
		},
		OpsServer: Server{
			Port: os.Getenv(OpsServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:           os.Getenv(AWSRegionEnv),
			Endpoint:         os.Getenv(AWSEndpointEnv),
			StreamQueueURL:   os.Getenv(StreamQueueURLEnv),
			ShipmentQueueURL: os.Getenv(ShipmentQueueURLEnv),
			S3EventQueueURL:  os.Getenv(S3EventQueueURLEnv),
			RetryQueueURL:    os.Getenv(RetryQueueURLEnv),
			AlertTopicARN:    os.Getenv(AlertTopicARNEnv),
		},
		CargoWise: Endpoint{
			URL:           os.Getenv(CWURLEnv),
			Authorization: os.Getenv(CWAuthorizationEnv),
		},
		WorldTrak: SOAPEndpoint{
			URL:      os.Getenv(WTURLEnv),
			Username: os.Getenv(WTSoapUsernameEnv),
			Password: os.Getenv(WTSoapPasswordEnv),
		},
		DocumentAPI: Endpoint{
			URL: os.Getenv(DocumentAPIURLEnv),
		},
		Pipeline: Pipeline{
			CustomerAllowList:       getEnvAsList(CustomerAllowListEnv),
			RetryPromotionThreshold: getEnvAsInt(RetryPromotionThresholdEnv, 0),
			RegistrationCustomerNo:  os.Getenv(RegistrationCustomerNoEnv),
			RegistrationStation:     os.Getenv(RegistrationStationEnv),
			SourceTables: SourceTables{
				Milestone:   getEnvOrDefault(MilestoneTableEnv, "shipment-milestone"),
				AparFailure: getEnvOrDefault(AparFailureTableEnv, "apar-failure"),
				Cost:        getEnvOrDefault(CostTableEnv, "shipment-apar"),
				Document:    getEnvOrDefault(DocumentTableEnv, "shipment-file"),
			},
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
