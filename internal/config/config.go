// =============================================================================
// Property Feed Converter - Configuration Module
// =============================================================================
//
// This module handles loading and parsing of the YAML configuration file.
//
// EXAMPLE (config.yaml):
//
//   input_path: ./input/feed.xml
//   output_dir: ./output
//   output_file_pattern: "transformed_{externalId}.xml"
//   report_dir: ./reports
//   log_file: ./logs/converter.log
//   log_level: info
//   upload:
//     enabled: true
//     endpoint: https://rest.example.com/offer/v1.0/user/me/realestate
//     delay: 1s
//     env_file: .env
//   images:
//     dir: ./images
//     timeout: 10s
//
// SECRETS:
//   The upload token is never stored in the YAML file. It is read from the
//   environment variable named by upload.token_env, after loading
//   upload.env_file with godotenv.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION
// =============================================================================

// MainConfig represents the main application configuration.
type MainConfig struct {
	// InputPath is the listing feed to convert.
	InputPath string `yaml:"input_path"`

	// OutputDir is the directory where generated documents are written.
	OutputDir string `yaml:"output_dir"`

	// OutputFilePattern names generated documents.
	// Placeholders: {externalId}, {type}, {uuid}, {timestamp}, {date}, {time}
	OutputFilePattern string `yaml:"output_file_pattern"`

	// ReportDir receives the XLSX run report and the text logs.
	ReportDir string `yaml:"report_dir"`

	// LogFile is the path to the log file. Empty disables file logging.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Upload UploadConfig `yaml:"upload"`
	Images ImagesConfig `yaml:"images"`
}

// UploadConfig configures the portal upload.
type UploadConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`

	// Delay is the pause between consecutive uploads.
	Delay time.Duration `yaml:"delay"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`

	// EnvFile is loaded into the environment before the token is read.
	// A missing file is not an error.
	EnvFile string `yaml:"env_file"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`
}

// ImagesConfig configures the image mirror.
type ImagesConfig struct {
	Dir        string        `yaml:"dir"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	MaxRetries int           `yaml:"max_retries"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// DefaultMainConfig returns the configuration used when no file is given.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: Path to the configuration file.
//
// RETURNS:
//   - A pointer to the loaded MainConfig.
//   - An error if the file cannot be read or parsed, or if the result is
//     invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for unspecified fields.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputPath == "" {
		config.InputPath = "./input/bv.xml"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputFilePattern == "" {
		config.OutputFilePattern = "transformed_{externalId}.xml"
	}
	if config.ReportDir == "" {
		config.ReportDir = "./reports"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.Upload.Delay == 0 {
		config.Upload.Delay = time.Second
	}
	if config.Upload.Timeout == 0 {
		config.Upload.Timeout = 30 * time.Second
	}
	if config.Upload.MaxRetries == 0 {
		config.Upload.MaxRetries = 3
	}
	if config.Upload.EnvFile == "" {
		config.Upload.EnvFile = ".env"
	}
	if config.Upload.TokenEnv == "" {
		config.Upload.TokenEnv = "UPLOAD_TOKEN"
	}

	if config.Images.Dir == "" {
		config.Images.Dir = "./images"
	}
	if config.Images.Timeout == 0 {
		config.Images.Timeout = 10 * time.Second
	}
	if config.Images.UserAgent == "" {
		config.Images.UserAgent = "Mozilla/5.0"
	}
	if config.Images.MaxRetries == 0 {
		config.Images.MaxRetries = 2
	}
}

// validateMainConfig validates the configuration.
func validateMainConfig(config *MainConfig) error {
	if config.Upload.Delay < 0 || config.Upload.Timeout < 0 || config.Images.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	if config.Upload.MaxRetries < 0 || config.Images.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}

	if config.Upload.Enabled {
		if config.Upload.Endpoint == "" {
			return errors.New("upload.endpoint is required when upload is enabled")
		}
		u, err := url.Parse(config.Upload.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("upload.endpoint %q is not an http(s) URL", config.Upload.Endpoint)
		}
	}

	return nil
}

// LoadUploadToken loads the env file, if present, and returns the token
// from the configured environment variable. Variables already set in the
// environment take precedence over the file.
func (u UploadConfig) LoadUploadToken() (string, error) {
	if u.EnvFile != "" {
		if err := godotenv.Load(u.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to load %s: %w", u.EnvFile, err)
		}
	}

	token := os.Getenv(u.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", u.TokenEnv)
	}
	return token, nil
}
