// Package config loads glyphmark configuration from a TOML, JSON or YAML
// file with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
)

// Environment overrides.
const (
	EnvLogLevel = "GLYPHMARK_LOG_LEVEL"
	EnvPort     = "GLYPHMARK_PORT"
	EnvHistory  = "GLYPHMARK_HISTORY"
)

// Config is the complete configuration.
type Config struct {
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	Server  ServerConfig  `toml:"server" json:"server" yaml:"server"`
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`
	Watch   WatchConfig   `toml:"watch" json:"watch" yaml:"watch"`
	Targets []Target      `toml:"targets" json:"targets" yaml:"targets"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port           int      `toml:"port" json:"port" yaml:"port"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	MaxBodyBytes   int64    `toml:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes"`
}

// HistoryConfig controls the run history. An empty path disables it.
type HistoryConfig struct {
	Path string `toml:"path" json:"path" yaml:"path"`
}

// WatchConfig controls directory watching.
type WatchConfig struct {
	DebounceMS   int    `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
	OutputSuffix string `toml:"output_suffix" json:"output_suffix" yaml:"output_suffix"`
}

// Target adds code points to mark on top of the built-in table. CodePoint
// may be one code point, a range such as "U+2000..U+200A" or a comma
// separated list of both; every code point gets the same label.
type Target struct {
	CodePoint string `toml:"code_point" json:"code_point" yaml:"code_point"`
	Label     string `toml:"label" json:"label" yaml:"label"`
	ZeroWidth bool   `toml:"zero_width" json:"zero_width" yaml:"zero_width"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Port: 8080, MaxBodyBytes: 10 << 20},
		Watch:  WatchConfig{DebounceMS: 500, OutputSuffix: ".marked"},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. A missing file yields the defaults; an empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.NewIO("read config", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var err error
	format := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		format = "yaml"
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return &errors.ParseError{Format: format, Path: path, Message: "decoding config", Err: err}
	}
	return nil
}

// ApplyEnvOverrides applies GLYPHMARK_ environment variables.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &errors.ValidationError{Field: EnvPort, Value: v, Message: "not a port number"}
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvHistory); v != "" {
		c.History.Path = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &errors.ValidationError{Field: "log.level", Value: c.Log.Level, Message: "unknown level"}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return &errors.ValidationError{Field: "log.format", Value: c.Log.Format, Message: "unknown format"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &errors.ValidationError{Field: "server.port", Value: strconv.Itoa(c.Server.Port), Message: "out of range"}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &errors.ValidationError{Field: "server.max_body_bytes", Message: "must be positive"}
	}
	if c.Watch.DebounceMS < 0 {
		return &errors.ValidationError{Field: "watch.debounce_ms", Message: "must not be negative"}
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Registry returns the default target table extended with the configured
// targets.
func (c *Config) Registry() (*glyphs.Registry, error) {
	if len(c.Targets) == 0 {
		return glyphs.Default(), nil
	}
	entries := make([]glyphs.Entry, 0, len(c.Targets))
	for i, t := range c.Targets {
		cps, err := glyphs.ParseCodePoints(t.CodePoint)
		if err != nil {
			return nil, &errors.ValidationError{
				Field:   fmt.Sprintf("targets[%d].code_point", i),
				Value:   t.CodePoint,
				Message: "not a code point",
				Err:     err,
			}
		}
		for _, cp := range cps {
			entries = append(entries, glyphs.Entry{CodePoint: cp, Label: t.Label, ZeroWidth: t.ZeroWidth})
		}
	}
	return glyphs.Default().Extend(entries...)
}
