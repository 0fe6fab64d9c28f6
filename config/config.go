// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config reads the YAML configuration of an xr application.
//
// The library packages take functional options; only command-line tools
// read files. Fields left out of a file keep their [Default] values.
//
//	application_name: demo
//	backend: simulated
//	swapchain:
//	  formats: [bgra8unorm, rgba8unorm]
//	input:
//	  haptic_threshold: 0.8
//	metrics:
//	  address: 127.0.0.1:9464
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	ApplicationName string `yaml:"application_name" validate:"required,max=127"`

	// Backend names a registered runtime backend. Empty picks the best
	// available one.
	Backend       string            `yaml:"backend,omitempty"`
	BackendParams map[string]string `yaml:"backend_params,omitempty"`

	Swapchain Swapchain `yaml:"swapchain"`
	Input     Input     `yaml:"input"`
	Metrics   Metrics   `yaml:"metrics"`
	Log       Log       `yaml:"log"`
}

// Swapchain configures per-eye swapchains.
type Swapchain struct {
	// Formats lists preferred formats, best first.
	Formats []string `yaml:"formats" validate:"required,min=1,dive,oneof=rgba8unorm bgra8unorm"`

	// DynamicBounds recomputes texture bounds from each frame's views.
	DynamicBounds bool `yaml:"dynamic_bounds"`
}

// Input configures the action system.
type Input struct {
	HapticThreshold float32 `yaml:"haptic_threshold" validate:"gte=0,lte=1"`
	HapticAmplitude float32 `yaml:"haptic_amplitude" validate:"gte=0,lte=1"`
	MinHandScale    float32 `yaml:"min_hand_scale" validate:"gt=0,lte=1"`

	// ProfilesFile replaces the built-in binding tables.
	ProfilesFile string `yaml:"profiles_file,omitempty" validate:"omitempty,filepath"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Address to serve /metrics on. Empty disables the endpoint.
	Address string `yaml:"address,omitempty" validate:"omitempty,hostname_port"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ApplicationName: "xr",
		Swapchain: Swapchain{
			Formats: []string{"rgba8unorm", "bgra8unorm"},
		},
		Input: Input{
			HapticThreshold: 0.9,
			HapticAmplitude: 0.5,
			MinHandScale:    0.5,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and names.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Parse reads YAML from r over the defaults and validates the result.
// Unknown fields are rejected.
func Parse(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Write encodes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}

var formats = map[string]gputypes.TextureFormat{
	"rgba8unorm": gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm": gputypes.TextureFormatBGRA8Unorm,
}

// TextureFormats converts Swapchain.Formats. Names are validated, so unknown
// names cannot occur after Parse.
func (s Swapchain) TextureFormats() []gputypes.TextureFormat {
	out := make([]gputypes.TextureFormat, 0, len(s.Formats))
	for _, name := range s.Formats {
		if f, ok := formats[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// FormatName returns the configuration name of f, or "" for formats the
// configuration cannot name.
func FormatName(f gputypes.TextureFormat) string {
	for name, v := range formats {
		if v == f {
			return name
		}
	}
	return ""
}

// SlogLevel converts Log.Level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds a logger writing to w in the configured format and level.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
