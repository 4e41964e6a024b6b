package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/retry"
	"github.com/objectfs/swiftclient/pkg/types"
	"github.com/objectfs/swiftclient/pkg/utils"
)

// Configuration represents the complete client configuration
type Configuration struct {
	Auth     types.Credentials `yaml:"auth"`
	Retry    retry.Policy      `yaml:"retry"`
	Network  NetworkConfig     `yaml:"network"`
	Transfer TransferConfig    `yaml:"transfer"`
	Logging  LoggingConfig     `yaml:"logging"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// NetworkConfig represents HTTP transport settings
type NetworkConfig struct {
	Insecure       bool          `yaml:"insecure"`
	CACert         string        `yaml:"cacert"`
	Proxy          string        `yaml:"proxy" validate:"omitempty,url"`
	UserAgent      string        `yaml:"user_agent"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxIdleConns   int           `yaml:"max_idle_conns" validate:"gte=0"`
}

// TransferConfig represents upload and download settings
type TransferConfig struct {
	// ChunkSize accepts human-readable sizes such as "64K".
	ChunkSize         string `yaml:"chunk_size"`
	DetectContentType bool   `yaml:"detect_content_type"`
	Checksum          bool   `yaml:"checksum"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	Format    string `yaml:"format" validate:"omitempty,oneof=text json"`
	HTTPDebug bool   `yaml:"http_debug"`
}

// MetricsConfig represents Prometheus settings
type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
	Labels    map[string]string `yaml:"labels"`
}

// NewDefault creates a configuration with default values
func NewDefault() *Configuration {
	return &Configuration{
		Auth: types.Credentials{
			AuthVersion: "1.0",
			Options: types.AuthOptions{
				ServiceType:  "object-store",
				EndpointType: "publicURL",
			},
		},
		Retry: retry.DefaultPolicy(),
		Network: NetworkConfig{
			ConnectTimeout: 30 * time.Second,
			MaxIdleConns:   16,
		},
		Transfer: TransferConfig{
			ChunkSize: "64K",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "swiftclient",
		},
	}
}

// Load builds a configuration from defaults, an optional YAML file, any .env
// file in the working directory and the process environment, then validates it.
func Load(filename string) (*Configuration, error) {
	cfg := NewDefault()
	if filename != "" {
		if err := cfg.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	_ = godotenv.Load()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename) // #nosec G304 -- caller supplied config path
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files without overriding
// variables already present in the environment.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. ST_* variables
// take precedence over their OS_* equivalents.
func (c *Configuration) LoadFromEnv() error {
	setString(&c.Auth.AuthURL, "ST_AUTH", "OS_AUTH_URL")
	setString(&c.Auth.User, "ST_USER", "OS_USERNAME")
	setString(&c.Auth.Key, "ST_KEY", "OS_PASSWORD")
	setString(&c.Auth.AuthVersion, "ST_AUTH_VERSION", "OS_AUTH_VERSION")
	setString(&c.Auth.TenantName, "OS_TENANT_NAME")
	setString(&c.Auth.TenantID, "OS_TENANT_ID")
	setString(&c.Auth.Options.AuthToken, "OS_AUTH_TOKEN")
	setString(&c.Auth.Options.ObjectStorageURL, "OS_STORAGE_URL")
	setString(&c.Auth.Options.RegionName, "OS_REGION_NAME")
	setString(&c.Auth.Options.ServiceType, "OS_SERVICE_TYPE")
	setString(&c.Auth.Options.EndpointType, "OS_ENDPOINT_TYPE")

	if val := os.Getenv("SWIFTCLIENT_INSECURE"); val != "" {
		c.Network.Insecure = utils.ConfigTrueValue(val)
	}
	setString(&c.Network.CACert, "OS_CACERT")
	setString(&c.Logging.Level, "SWIFTCLIENT_LOG_LEVEL")
	setString(&c.Transfer.ChunkSize, "SWIFTCLIENT_CHUNK_SIZE")

	if val := os.Getenv("SWIFTCLIENT_RETRIES"); val != "" {
		retries, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid SWIFTCLIENT_RETRIES: %w", err)
		}
		c.Retry.Retries = retries
	}
	if val := os.Getenv("SWIFTCLIENT_MAX_BACKOFF"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid SWIFTCLIENT_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}
	if val := os.Getenv("SWIFTCLIENT_RETRY_ON_RATELIMIT"); val != "" {
		c.Retry.RetryOnRateLimit = utils.ConfigTrueValue(val)
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return invalid(validationMessage(err))
	}

	switch c.Auth.AuthVersion {
	case "1", "1.0", "2", "2.0":
	default:
		return invalid(fmt.Sprintf("unknown auth_version %q", c.Auth.AuthVersion))
	}

	if !c.Auth.Preauthenticated() && !c.Auth.Complete() {
		return errors.NewError(errors.ErrCodeCredentialsMissing,
			"auth_url, user and key are required unless object_storage_url and auth_token are set").
			WithComponent("config")
	}

	if err := c.Retry.Validate(); err != nil {
		return invalid(err.Error())
	}
	if _, err := c.ChunkSizeBytes(); err != nil {
		return invalid(fmt.Sprintf("invalid chunk_size: %v", err))
	}
	if _, err := utils.ParseLogLevel(c.Logging.Level); err != nil {
		return invalid(err.Error())
	}

	return nil
}

// ChunkSizeBytes returns the transfer chunk size in bytes.
func (c *Configuration) ChunkSizeBytes() (int, error) {
	if c.Transfer.ChunkSize == "" {
		return utils.DefaultChunkSize, nil
	}
	n, err := utils.ParseBytes(c.Transfer.ChunkSize)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("chunk size must be positive")
	}
	return int(n), nil
}

func setString(dst *string, names ...string) {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			*dst = val
			return
		}
	}
}

func invalid(msg string) *errors.Error {
	return errors.NewError(errors.ErrCodeInvalidConfig, msg).WithComponent("config")
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		switch ve.Tag() {
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", ve.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", ve.Namespace(), ve.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", ve.Namespace(), ve.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", ve.Namespace(), ve.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
