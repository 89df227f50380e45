// Package config loads sgscan settings from flags, environment, .env and
// an optional YAML file, and configures logging for the run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/jamfkit/sgscan/internal/common"
	"github.com/jamfkit/sgscan/internal/models"
	"github.com/jamfkit/sgscan/internal/scanner"
)

var validate = validator.New()

// flagBindings maps config keys to the CLI flags that override them.
var flagBindings = map[string]string{
	"server.url":         "url",
	"server.timeout":     "timeout",
	"auth.username":      "user",
	"auth.password":      "password",
	"auth.token":         "token",
	"auth.client_id":     "client-id",
	"auth.client_secret": "client-secret",
	"scan.pattern":       "pattern",
	"scan.regex":         "regex",
	"scan.include":       "include",
	"scan.workers":       "workers",
	"scan.smart_only":    "smart-only",
	"scan.retries":       "retries",
	"scan.retry_delay":   "retry-delay",
	"scan.strict":        "strict",
	"output.json":        "json",
	"output.jq":          "jq",
	"output.progress":    "progress",
	"logging.level":      "log-level",
	"logging.format":     "log-format",
	"sessions.path":      "sessions-file",
	"sessions.disabled":  "no-sessions",
}

func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("error unmarshaling default config: %v", err))
	}
	return &config
}

// Load loads the configuration from various sources. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	loadEnvFile()

	v := viper.New()

	setupViperConfig(v, configFile)
	bindEnvironmentVariables(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}
}

func setupViperConfig(v *viper.Viper, configFile string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sgscan"))
	}
	v.AddConfigPath("/etc/sgscan")

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix("SGSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// bindEnvironmentVariables binds the variable names used by existing Jamf
// tooling. SGSCAN_* names come from AutomaticEnv and are checked first.
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("server.url", "SGSCAN_SERVER_URL", "JAMF_URL", "JPS_URL")

	v.BindEnv("auth.username", "SGSCAN_AUTH_USERNAME", "JAMF_USER")
	v.BindEnv("auth.password", "SGSCAN_AUTH_PASSWORD", "JAMF_PASS")
	v.BindEnv("auth.token", "SGSCAN_AUTH_TOKEN", "JAMF_TOKEN")
	v.BindEnv("auth.client_id", "SGSCAN_AUTH_CLIENT_ID", "CLIENT_ID")
	v.BindEnv("auth.client_secret", "SGSCAN_AUTH_CLIENT_SECRET", "CLIENT_SECRET")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for key, name := range flagBindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	// Negative and paired switches only apply when given explicitly.
	if flag := flags.Lookup("no-verify-ssl"); flag != nil && flag.Changed {
		v.Set("server.verify_ssl", !cast.ToBool(flag.Value.String()))
	}
	if flag := flags.Lookup("case-sensitive"); flag != nil && flag.Changed {
		v.Set("scan.case_insensitive", !cast.ToBool(flag.Value.String()))
	}
	if flag := flags.Lookup("case-insensitive"); flag != nil && flag.Changed {
		v.Set("scan.case_insensitive", cast.ToBool(flag.Value.String()))
	}

	return nil
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debugln("Loaded config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// Validate checks settings that do not depend on the command being run.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := models.ParseGroupTypes(c.Scan.Include); err != nil {
		return fmt.Errorf("invalid configuration: scan.include: %w", err)
	}
	if _, err := common.ParseDuration(c.Server.Timeout); err != nil {
		return fmt.Errorf("invalid configuration: server.timeout: %w", err)
	}
	if _, err := common.ParseDuration(c.Scan.RetryDelay); err != nil {
		return fmt.Errorf("invalid configuration: scan.retry_delay: %w", err)
	}

	return nil
}

// setupLogging configures the logging system based on the config
func setupLogging(config *Config, v *viper.Viper) error {
	level, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	config.logger = newDiagnostics(maxDiagnosticItems)
	hooks := make(logrus.LevelHooks)
	hooks.Add(config.logger)
	logrus.StandardLogger().ReplaceHooks(hooks)

	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if level >= logrus.DebugLevel {
		for key, value := range v.AllSettings() {
			logrus.Debugf("Config '%s': %v", key, redact(key, value))
		}
	}

	return nil
}

// redact hides credential sections in debug dumps.
func redact(key string, value any) any {
	if key != "auth" {
		return value
	}
	settings, ok := value.(map[string]any)
	if !ok {
		return value
	}
	redacted := make(map[string]any, len(settings))
	for name, setting := range settings {
		if text := cast.ToString(setting); len(text) > 0 && name != "username" && name != "client_id" {
			setting = common.MaskSecret(text)
		}
		redacted[name] = setting
	}
	return redacted
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.url", "")
	v.SetDefault("server.verify_ssl", true)
	v.SetDefault("server.timeout", "30s")

	// Credentials are only ever supplied by the user
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")

	// Scan defaults
	v.SetDefault("scan.pattern", "")
	v.SetDefault("scan.regex", false)
	v.SetDefault("scan.case_insensitive", true)
	v.SetDefault("scan.include", []string{"computer", "mobile", "user"})
	v.SetDefault("scan.workers", scanner.DefaultWorkers)
	v.SetDefault("scan.smart_only", false)
	v.SetDefault("scan.retries", 0)
	v.SetDefault("scan.retry_delay", scanner.DefaultRetryDelay.String())
	v.SetDefault("scan.strict", false)

	// Output defaults
	v.SetDefault("output.json", false)
	v.SetDefault("output.jq", "")
	v.SetDefault("output.progress", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Session store defaults
	v.SetDefault("sessions.path", "")
	v.SetDefault("sessions.disabled", false)
}
