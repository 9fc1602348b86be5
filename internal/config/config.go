// Package config loads and validates nmap-parse configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/nmap-parse/internal/errors"
)

const (
	// DefaultFormat is the output template used when none is configured.
	DefaultFormat = "{ip} {port}"

	defaultMaxLineBytes = 16 * 1024 * 1024
)

// Config represents the complete tool configuration
type Config struct {
	// Output rendering
	Output OutputConfig `yaml:"output" json:"output"`

	// Source parsing
	Parsing ParsingConfig `yaml:"parsing" json:"parsing"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// OutputConfig controls how facts are rendered
type OutputConfig struct {
	// Line template with {ip} and {port} placeholders
	Format string `yaml:"format" json:"format" validate:"required"`

	// Comma-separated port allow-list, empty for all ports
	Ports string `yaml:"ports" json:"ports"`
}

// ParsingConfig holds source parsing settings
type ParsingConfig struct {
	// Number of sources parsed concurrently
	Workers int `yaml:"workers" json:"workers" validate:"min=1,max=256"`

	// Longest accepted greppable line in bytes
	MaxLineBytes int `yaml:"max_line_bytes" json:"max_line_bytes" validate:"min=1024"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output" validate:"required"`

	// Rotation of file output
	MaxSizeMB  int  `yaml:"max_size_mb" json:"max_size_mb" validate:"min=0"`
	MaxBackups int  `yaml:"max_backups" json:"max_backups" validate:"min=0"`
	MaxAgeDays int  `yaml:"max_age_days" json:"max_age_days" validate:"min=0"`
	Compress   bool `yaml:"compress" json:"compress"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// Prometheus textfile written after each run, empty to disable
	Textfile string `yaml:"textfile" json:"textfile"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Format: DefaultFormat,
			Ports:  "",
		},
		Parsing: ParsingConfig{
			Workers:      1,
			MaxLineBytes: defaultMaxLineBytes,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Output:    "stderr",
			MaxSizeMB: 100,
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML, so one decoder serves .yaml, .yml and .json
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML key so errors match what the user wrote
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return errors.ErrConfigInvalid(strings.TrimPrefix(first.Namespace(), "Config."), first.Value())
	}
	return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
}
