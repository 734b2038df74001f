// Package config - Worker host configuration.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lens-ai/go-detect/images"
)

// Duration wraps time.Duration so YAML values like "5s" parse naturally.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

// Config configures the worker host.
type Config struct {
	// ModelPath is the location of the model asset.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// RuntimeLibPath points at the inference runtime shared library; empty
	// selects the platform default.
	RuntimeLibPath string `json:"runtime_lib_path" yaml:"runtime_lib_path"`
	// TargetSize is the square model input size.
	TargetSize int `json:"target_size" yaml:"target_size"`
	// RestartDelay is how long the host waits before exiting after a
	// failed model load, giving the supervisor a paced restart.
	RestartDelay Duration `json:"restart_delay" yaml:"restart_delay"`
	// InputName overrides the model input the request tensor binds to;
	// empty uses the model's first declared input.
	InputName string `json:"input_name" yaml:"input_name"`
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		ModelPath:    "./models/detector.onnx",
		TargetSize:   images.DefaultTargetSize,
		RestartDelay: Duration(5 * time.Second),
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order.
//
// Arguments:
//   - path: YAML config file path; empty skips the file layer.
//
// Returns:
//   - Config: The effective configuration.
//   - error: An error if the file is unreadable, unparsable or the result
//     is invalid.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DETECT_MODEL_PATH"); v != "" {
		c.ModelPath = v
	}
	if v := os.Getenv("DETECT_RUNTIME_LIB"); v != "" {
		c.RuntimeLibPath = v
	}
	if v := os.Getenv("DETECT_INPUT_NAME"); v != "" {
		c.InputName = v
	}
	if v := os.Getenv("DETECT_TARGET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TargetSize = n
		}
	}
	if v := os.Getenv("DETECT_RESTART_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RestartDelay = Duration(d)
		}
	}
}

func (c Config) validate() error {
	if c.ModelPath == "" {
		return errors.New("model_path is required")
	}
	if c.TargetSize <= 0 {
		return errors.Errorf("target_size must be positive, got %d", c.TargetSize)
	}
	if c.RestartDelay < 0 {
		return errors.New("restart_delay must not be negative")
	}
	return nil
}
