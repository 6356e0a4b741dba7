package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredVariables(t *testing.T) {
	// Clear all environment variables
	clearEnv := func() {
		os.Unsetenv("HOST")
		os.Unsetenv("PORT")
		os.Unsetenv("MODEL_TYPE")
		os.Unsetenv("MODEL_PATH")
		os.Unsetenv("DEVICE_ID")
		os.Unsetenv("ENGINE_URL")
		os.Unsetenv("OUTPUT_DIR")
		os.Unsetenv("S3_BUCKET")
		os.Unsetenv("S3_REGION")
		os.Unsetenv("AWS_ACCESS_KEY_ID")
		os.Unsetenv("AWS_SECRET_ACCESS_KEY")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("LOG_LEVEL")
	}

	t.Run("missing ENGINE_URL returns error", func(t *testing.T) {
		clearEnv()

		_, err := Load()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEngineURLRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		clearEnv()
		t.Setenv("ENGINE_URL", "http://localhost:9090")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9090", cfg.EngineURL)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://localhost:9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "ti2v-5B", cfg.ModelType)
	assert.Equal(t, "./models", cfg.ModelPath)
	assert.Equal(t, 0, cfg.DeviceID)
	assert.Equal(t, "/tmp/outputs", cfg.OutputDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://engine:9090")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "3000")
	t.Setenv("MODEL_TYPE", "t2v-A14B")
	t.Setenv("MODEL_PATH", "/srv/checkpoints")
	t.Setenv("DEVICE_ID", "1")
	t.Setenv("OUTPUT_DIR", "/srv/outputs")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "t2v-A14B", cfg.ModelType)
	assert.Equal(t, "/srv/checkpoints", cfg.ModelPath)
	assert.Equal(t, 1, cfg.DeviceID)
	assert.Equal(t, "/srv/outputs", cfg.OutputDir)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestS3Enabled(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		region  string
		enabled bool
	}{
		{"both set", "bucket", "us-east-1", true},
		{"bucket only", "bucket", "", false},
		{"region only", "", "us-east-1", false},
		{"neither", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{S3Bucket: tt.bucket, S3Region: tt.region}
			assert.Equal(t, tt.enabled, cfg.S3Enabled())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing engine URL", func(t *testing.T) {
		cfg := &Config{}
		assert.ErrorIs(t, cfg.Validate(), ErrEngineURLRequired)
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{EngineURL: "http://localhost:9090"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		cfg := &Config{LogFormat: "text", LogLevel: "info"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
	})

	t.Run("json format", func(t *testing.T) {
		cfg := &Config{LogFormat: "json", LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		EngineURL:          "http://localhost:9090",
		AWSAccessKeyID:     "AKIA-SECRET",
		AWSSecretAccessKey: "very-secret",
	}

	var buf bytes.Buffer
	buf.WriteString(cfg.String())

	assert.NotContains(t, buf.String(), "AKIA-SECRET")
	assert.NotContains(t, buf.String(), "very-secret")
}
