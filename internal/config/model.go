package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/jamf"
	"github.com/jamfkit/sgscan/internal/models"
	"github.com/jamfkit/sgscan/internal/scanner"
)

// Config represents the application configuration structure
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sessions SessionsConfig `mapstructure:"sessions"`

	logger *diagnostics
}

type ServerConfig struct {
	URL       string `mapstructure:"url"`
	VerifySSL bool   `mapstructure:"verify_ssl"`
	Timeout   string `mapstructure:"timeout" validate:"required"`
}

type AuthConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Token        string `mapstructure:"token"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type ScanConfig struct {
	Pattern         string   `mapstructure:"pattern"`
	Regex           bool     `mapstructure:"regex"`
	CaseInsensitive bool     `mapstructure:"case_insensitive"`
	Include         []string `mapstructure:"include" validate:"min=1"`
	Workers         int      `mapstructure:"workers" validate:"min=1,max=100"`
	SmartOnly       bool     `mapstructure:"smart_only"`
	Retries         int      `mapstructure:"retries" validate:"min=0,max=10"`
	RetryDelay      string   `mapstructure:"retry_delay" validate:"required"`

	// Strict turns any listing or group failure into a failed run.
	Strict bool `mapstructure:"strict"`
}

type OutputConfig struct {
	JSON     bool   `mapstructure:"json"`
	JQ       string `mapstructure:"jq"`
	Progress bool   `mapstructure:"progress"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type SessionsConfig struct {
	// Path defaults to ~/.config/sgscan/sessions.yaml.
	Path     string `mapstructure:"path"`
	Disabled bool   `mapstructure:"disabled"`
}

// HasCredentials reports whether any way to authenticate was configured.
func (c *Config) HasCredentials() bool {
	return !c.Credentials().IsEmpty()
}

func (c *Config) Credentials() jamf.Credentials {
	return jamf.Credentials{
		Username:     c.Auth.Username,
		Password:     c.Auth.Password,
		Token:        c.Auth.Token,
		ClientID:     c.Auth.ClientID,
		ClientSecret: c.Auth.ClientSecret,
	}
}

func (c *Config) GetTimeout() time.Duration {
	timeout, err := common.ParseDuration(c.Server.Timeout)
	if err != nil {
		return jamf.DefaultTimeout
	}
	return timeout
}

func (c *Config) GetRetryDelay() time.Duration {
	delay, err := common.ParseDuration(c.Scan.RetryDelay)
	if err != nil {
		return scanner.DefaultRetryDelay
	}
	return delay
}

// ClientOptions builds the Jamf client options. The server URL is only
// required by commands that talk to a server.
func (c *Config) ClientOptions() (jamf.Options, error) {
	if len(c.Server.URL) == 0 {
		return jamf.Options{}, fmt.Errorf("server URL is required (--url, JAMF_URL or server.url)")
	}
	if _, err := jamf.ParseBaseURL(c.Server.URL); err != nil {
		return jamf.Options{}, err
	}

	return jamf.Options{
		BaseURL:     c.Server.URL,
		Credentials: c.Credentials(),
		VerifySSL:   c.Server.VerifySSL,
		Timeout:     c.GetTimeout(),
	}, nil
}

func (c *Config) GroupTypes() ([]models.GroupType, error) {
	return models.ParseGroupTypes(c.Scan.Include)
}

func (c *Config) ScannerOptions() scanner.Options {
	return scanner.Options{
		Workers:    c.Scan.Workers,
		SmartOnly:  c.Scan.SmartOnly,
		Retries:    c.Scan.Retries,
		RetryDelay: c.GetRetryDelay(),
	}
}

// RunID tags every log entry of this run.
func (c *Config) RunID() uuid.UUID {
	if c.logger == nil {
		return uuid.Nil
	}
	return c.logger.runID
}

// Diagnostics returns the warnings and errors logged so far.
func (c *Config) Diagnostics() []*models.LogEntry {
	if c.logger == nil {
		return nil
	}
	return c.logger.GetEvents()
}
