package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the bdecode configuration file.
type Config struct {
	Decoder DecoderConfig `toml:"decoder"`
	Verify  VerifyConfig  `toml:"verify"`
	Log     LogConfig     `toml:"log"`
}

// DecoderConfig maps onto bencode.Decoder.
type DecoderConfig struct {
	MaxDepth        int `toml:"max_depth"`
	MaxStringLength int `toml:"max_string_length"`
}

// VerifyConfig controls torrent fetching.
type VerifyConfig struct {
	Timeout   time.Duration `toml:"timeout"`
	UserAgent string        `toml:"user_agent"`
	MaxBytes  int64         `toml:"max_bytes"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp bool   `toml:"timestamp"`
}

const (
	DefaultMaxDepth  = 200
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "grab-hib"
	DefaultMaxBytes  = 16 << 20
)

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads a TOML file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML from data, fills defaults and validates the result.
// source names the input in error messages.
func Parse(data []byte, source string) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config parse failed (%s): unknown keys %s", source, strings.Join(keys, ", "))
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", source, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Decoder.MaxDepth == 0 {
		cfg.Decoder.MaxDepth = DefaultMaxDepth
	}
	if cfg.Verify.Timeout == 0 {
		cfg.Verify.Timeout = DefaultTimeout
	}
	if cfg.Verify.UserAgent == "" {
		cfg.Verify.UserAgent = DefaultUserAgent
	}
	if cfg.Verify.MaxBytes == 0 {
		cfg.Verify.MaxBytes = DefaultMaxBytes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate reports every out-of-range setting in cfg.
func Validate(cfg Config) error {
	var errs []error
	if cfg.Decoder.MaxDepth < 0 {
		errs = append(errs, errors.New("decoder.max_depth must not be negative"))
	}
	if cfg.Decoder.MaxStringLength < 0 {
		errs = append(errs, errors.New("decoder.max_string_length must not be negative"))
	}
	if cfg.Verify.Timeout < 0 {
		errs = append(errs, errors.New("verify.timeout must not be negative"))
	}
	if cfg.Verify.MaxBytes < 0 {
		errs = append(errs, errors.New("verify.max_bytes must not be negative"))
	}
	return errors.Join(errs...)
}
