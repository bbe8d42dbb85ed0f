package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/pkg/file"
	"github.com/benmeehan/fbx-agent/pkg/identity"
)

// Config represents the structure of the configuration file.
type Config struct {
	Box struct {
		Host           string        `yaml:"host" env:"FBX_BOX_HOST"`                     // Well-known appliance host name
		DiscoveryPath  string        `yaml:"discovery_path"`                              // Plaintext path answering the API version
		CACertificate  string        `yaml:"ca_certificate" env:"FBX_BOX_CA_CERTIFICATE"` // Path to the pinned appliance CA
		ProxyURL       string        `yaml:"proxy_url" env:"FBX_BOX_PROXY_URL"`           // Optional HTTP proxy for appliance calls
		RequestTimeout time.Duration `yaml:"request_timeout"`                             // Timeout of each HTTP request
	} `yaml:"box"`

	App identity.ApplicationIdentity `yaml:"app"`

	Auth struct {
		File              string        `yaml:"file" env:"FBX_AUTH_FILE"`                               // Path to the persisted pairing record
		EncryptionKeyFile string        `yaml:"encryption_key_file" env:"FBX_AUTH_ENCRYPTION_KEY_FILE"` // Optional key file sealing the record
		PairingTimeout    time.Duration `yaml:"pairing_timeout"`                                        // Overall bound on the manual confirmation wait
		PollInterval      time.Duration `yaml:"poll_interval"`                                          // Delay between authorization polls
		MaxPollAttempts   int           `yaml:"max_poll_attempts"`                                      // 0 means bounded only by pairing_timeout
		LoginRetries      int           `yaml:"login_retries"`                                          // Login attempts before giving up
	} `yaml:"auth"`

	MQTT struct {
		Broker        string `yaml:"broker" env:"FBX_MQTT_BROKER"` // MQTT broker address
		ClientID      string `yaml:"client_id"`                    // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate"`               // Path to the broker CA certificate
		Username      string `yaml:"username" env:"FBX_MQTT_USERNAME"`
		Password      string `yaml:"password" env:"FBX_MQTT_PASSWORD"`
	} `yaml:"mqtt"`

	Services struct {
		Publisher struct {
			Enabled   bool          `yaml:"enabled"`   // Enable/disable snapshot publishing
			Topic     string        `yaml:"topic"`     // Base MQTT topic
			Interval  time.Duration `yaml:"interval"`  // Interval between snapshots
			QOS       int           `yaml:"qos"`       // MQTT QoS level for snapshots
			Retained  bool          `yaml:"retained"`  // Publish snapshots as retained messages
			Interface string        `yaml:"interface"` // LAN browser interface
			Workers   int           `yaml:"workers"`   // Concurrent player status reads
		} `yaml:"publisher"`
	} `yaml:"services"`

	Logging struct {
		Level  string `yaml:"level" env:"FBX_LOG_LEVEL"`   // debug, info, warn, error
		Format string `yaml:"format" env:"FBX_LOG_FORMAT"` // json, console
	} `yaml:"logging"`
}

// LoadConfig loads the YAML configuration from the specified file, then applies
// FBX_* environment overrides. It returns a pointer to the Config struct and an
// error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Box.Host == "" {
		c.Box.Host = "mafreebox.freebox.fr"
	}
	if c.Box.DiscoveryPath == "" {
		c.Box.DiscoveryPath = "/api_version"
	}
	if c.Box.CACertificate == "" {
		c.Box.CACertificate = "freebox.pem"
	}
	if c.Box.RequestTimeout == 0 {
		c.Box.RequestTimeout = 10 * time.Second
	}

	c.App = c.App.WithDefaults()

	if c.Auth.File == "" {
		c.Auth.File = "auth.json"
	}
	if c.Auth.PairingTimeout == 0 {
		c.Auth.PairingTimeout = 5 * time.Minute
	}
	if c.Auth.PollInterval == 0 {
		c.Auth.PollInterval = time.Second
	}
	if c.Auth.LoginRetries == 0 {
		c.Auth.LoginRetries = 3
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fbx-agent"
	}

	if c.Services.Publisher.Topic == "" {
		c.Services.Publisher.Topic = "fbx"
	}
	if c.Services.Publisher.Interval == 0 {
		c.Services.Publisher.Interval = constants.DefaultPublishInterval
	}
	if c.Services.Publisher.Interface == "" {
		c.Services.Publisher.Interface = "pub"
	}
	if c.Services.Publisher.Workers == 0 {
		c.Services.Publisher.Workers = constants.DefaultStatusWorkers
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.PollInterval < 0 {
		errs = append(errs, errors.New("auth.poll_interval must not be negative"))
	}
	if c.Auth.MaxPollAttempts < 0 {
		errs = append(errs, errors.New("auth.max_poll_attempts must not be negative"))
	}
	if c.Auth.LoginRetries < 1 {
		errs = append(errs, errors.New("auth.login_retries must be at least 1"))
	}
	if c.Services.Publisher.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker is required when the publisher is enabled"))
		}
		if c.Services.Publisher.QOS < 0 || c.Services.Publisher.QOS > 2 {
			errs = append(errs, fmt.Errorf("services.publisher.qos must be 0, 1 or 2, got %d", c.Services.Publisher.QOS))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
