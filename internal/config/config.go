// Package config loads barcodescan settings from flags, environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
)

// Config is the complete barcodescan configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Decode DecodeConfig `mapstructure:"decode" yaml:"decode" json:"decode"`
	Scan   ScanConfig   `mapstructure:"scan" yaml:"scan" json:"scan"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// DecodeConfig mirrors zxscan.DecodeOptions plus the image preparation
// settings applied before decoding.
type DecodeConfig struct {
	TryHarder        bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	PureBarcode      bool     `mapstructure:"pure_barcode" yaml:"pure_barcode" json:"pure_barcode"`
	Formats          []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	CharacterSet     string   `mapstructure:"character_set" yaml:"character_set" json:"character_set"`
	AllowedLengths   []int    `mapstructure:"allowed_lengths" yaml:"allowed_lengths" json:"allowed_lengths"`
	AlsoInverted     bool     `mapstructure:"also_inverted" yaml:"also_inverted" json:"also_inverted"`
	Code39CheckDigit bool     `mapstructure:"code39_check_digit" yaml:"code39_check_digit" json:"code39_check_digit"`
	Code39Extended   bool     `mapstructure:"code39_extended" yaml:"code39_extended" json:"code39_extended"`
	Binarizer        string   `mapstructure:"binarizer" yaml:"binarizer" json:"binarizer"`
	// MaxDimension downscales larger images before decoding. Zero disables
	// it.
	MaxDimension int `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
}

// ScanConfig controls the scan command.
type ScanConfig struct {
	Workers   int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Output    string `mapstructure:"output" yaml:"output" json:"output"`
	// Multi reports every symbol in an image instead of the first.
	Multi bool `mapstructure:"multi" yaml:"multi" json:"multi"`
}

// ServerConfig controls the serve command.
type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host" json:"host"`
	Port        int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Decode: DecodeConfig{
			Formats:        []string{},
			AllowedLengths: []int{},
			Binarizer:      "hybrid",
		},
		Scan: ScanConfig{
			Workers: runtime.NumCPU(),
			Output:  "text",
		},
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8080,
			MaxUploadMB: 20,
		},
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	outputs    = []string{"text", "json", "yaml"}
)

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("invalid log format: %s (must be one of: %s)", c.LogFormat, strings.Join(logFormats, ", "))
	}
	if err := c.Decode.Validate(); err != nil {
		return err
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers)
	}
	if !slices.Contains(outputs, strings.ToLower(c.Scan.Output)) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Scan.Output, strings.Join(outputs, ", "))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// Validate checks the decode settings on their own.
func (d *DecodeConfig) Validate() error {
	if _, err := d.Options(); err != nil {
		return err
	}
	if _, err := binarizer.Lookup(d.Binarizer); err != nil {
		return fmt.Errorf("decode.binarizer: %w", err)
	}
	if d.MaxDimension < 0 {
		return fmt.Errorf("decode.max_dimension must not be negative, got %d", d.MaxDimension)
	}
	for _, n := range d.AllowedLengths {
		if n < 1 {
			return fmt.Errorf("decode.allowed_lengths: %d is not a length", n)
		}
	}
	return nil
}

// Options converts the settings into decode hints.
func (d *DecodeConfig) Options() (*zxscan.DecodeOptions, error) {
	opts := &zxscan.DecodeOptions{
		TryHarder:              d.TryHarder,
		PureBarcode:            d.PureBarcode,
		CharacterSet:           d.CharacterSet,
		AllowedLengths:         slices.Clone(d.AllowedLengths),
		AssumeCode39CheckDigit: d.Code39CheckDigit,
		Code39Extended:         d.Code39Extended,
		AlsoInverted:           d.AlsoInverted,
	}
	for _, name := range d.Formats {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		f, err := zxscan.ParseFormat(name)
		if err != nil {
			return nil, fmt.Errorf("decode.formats: %w", err)
		}
		opts.PossibleFormats = append(opts.PossibleFormats, f)
	}
	return opts, nil
}

// BinarizerFactory resolves the configured binarizer.
func (d *DecodeConfig) BinarizerFactory() (binarizer.Factory, error) {
	return binarizer.Lookup(d.Binarizer)
}

// SlogLevel maps LogLevel to a slog level. Verbose forces debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Address returns host:port for the server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
