package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults validates the configuration produced with no file and no
// environment overrides.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err, "loading defaults should succeed")

	assert.Equal(t, "./models/detector.onnx", cfg.ModelPath, "default model path")
	assert.Equal(t, 320, cfg.TargetSize, "default target size")
	assert.Equal(t, Duration(5*time.Second), cfg.RestartDelay, "default restart delay")
	assert.Empty(t, cfg.RuntimeLibPath, "runtime library defaults to platform lookup")
	assert.Empty(t, cfg.InputName, "input name defaults to the model's declaration")
}

// TestLoadYAMLFile validates that file values override defaults.
func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	content := []byte(`
model_path: /opt/models/custom.onnx
target_size: 640
restart_delay: 250ms
input_name: pixel_values
`)
	require.NoError(t, os.WriteFile(path, content, 0o644), "writing config fixture")

	cfg, err := Load(path)
	require.NoError(t, err, "loading yaml config should succeed")

	assert.Equal(t, "/opt/models/custom.onnx", cfg.ModelPath, "model path should come from the file")
	assert.Equal(t, 640, cfg.TargetSize, "target size should come from the file")
	assert.Equal(t, Duration(250*time.Millisecond), cfg.RestartDelay, "restart delay should parse duration syntax")
	assert.Equal(t, "pixel_values", cfg.InputName, "input name should come from the file")
}

// TestLoadEnvOverrides validates that environment variables win over file
// values.
func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_path: /from/file.onnx\n"), 0o644), "writing config fixture")

	t.Setenv("DETECT_MODEL_PATH", "/from/env.onnx")
	t.Setenv("DETECT_TARGET_SIZE", "416")
	t.Setenv("DETECT_RESTART_DELAY", "1s")
	t.Setenv("DETECT_RUNTIME_LIB", "/usr/lib/libonnxruntime.so")

	cfg, err := Load(path)
	require.NoError(t, err, "loading config with env overrides should succeed")

	assert.Equal(t, "/from/env.onnx", cfg.ModelPath, "env should override the file")
	assert.Equal(t, 416, cfg.TargetSize, "env should override the target size")
	assert.Equal(t, Duration(time.Second), cfg.RestartDelay, "env should override the restart delay")
	assert.Equal(t, "/usr/lib/libonnxruntime.so", cfg.RuntimeLibPath, "env should set the runtime library")
}

// TestLoadInvalid validates the failure modes of Load.
func TestLoadInvalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err, "a named but missing file should fail")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model_path: [unterminated"), 0o644), "writing fixture")
		_, err := Load(path)
		assert.Error(t, err, "malformed yaml should fail")
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("restart_delay: soon\n"), 0o644), "writing fixture")
		_, err := Load(path)
		assert.Error(t, err, "unparsable duration should fail")
	})

	t.Run("zero target size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("target_size: 0\n"), 0o644), "writing fixture")
		_, err := Load(path)
		assert.Error(t, err, "non-positive target size should fail validation")
	})

	t.Run("empty model path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`model_path: ""`+"\n"), 0o644), "writing fixture")
		_, err := Load(path)
		assert.Error(t, err, "empty model path should fail validation")
	})
}
