package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/otpgate/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewService(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		service, err := NewService(Config{Level: Info, Format: "json", OutputPath: "stdout"})

		require.NoError(t, err)
		assert.NotNil(t, service)
		assert.NotNil(t, service.logger)
		assert.NotNil(t, service.sugar)
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(Config{Level: Debug, Format: "console", OutputPath: "stderr"})

		require.NoError(t, err)
		assert.NotNil(t, service.logger)
	})

	t.Run("rotated file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "otpgate.log")

		service, err := NewService(Config{
			Level:      Warn,
			Format:     "json",
			OutputPath: logFile,
			Rotation:   RotationConfig{MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
		})
		require.NoError(t, err)

		service.Info("filtered by level")
		service.Warn("challenge store degraded")
		_ = service.Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "challenge store degraded")
		assert.NotContains(t, string(data), "filtered by level")
	})
}

func TestNewLoggingService(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "debug", Format: "console", Output: "stdout"}}

	service, err := NewLoggingService(cfg)

	require.NoError(t, err)
	assert.NotNil(t, service)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.LogConfig{
		Level:      "warn",
		Format:     "json",
		Output:     "/var/log/otpgate.log",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	})

	assert.Equal(t, Warn, cfg.Level)
	assert.Equal(t, "/var/log/otpgate.log", cfg.OutputPath)
	assert.Equal(t, RotationConfig{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7, Compress: true}, cfg.Rotation)
}

func TestService_LoggingMethods(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	service := NewFromZap(zap.New(core))

	tests := []struct {
		name  string
		log   func()
		level zapcore.Level
		msg   string
	}{
		{"Debug", func() { service.Debug("debug message", zap.String("key", "value")) }, zapcore.DebugLevel, "debug message"},
		{"Info", func() { service.Info("info message") }, zapcore.InfoLevel, "info message"},
		{"Warn", func() { service.Warn("warn message") }, zapcore.WarnLevel, "warn message"},
		{"Error", func() { service.Error("error message") }, zapcore.ErrorLevel, "error message"},
		{"Infof", func() { service.Infof("info %d", 123) }, zapcore.InfoLevel, "info 123"},
		{"Errorf", func() { service.Errorf("error %s", "formatted") }, zapcore.ErrorLevel, "error formatted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.log()

			logs := recorded.TakeAll()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, tt.msg, logs[0].Message)
		})
	}
}

func TestService_With(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	service := NewFromZap(zap.New(core)).With(zap.String("component", "otp"))

	service.Info("challenge issued")

	logs := recorded.TakeAll()
	require.Len(t, logs, 1)
	assert.Equal(t, "otp", logs[0].ContextMap()["component"])
}

func TestService_NilSafety(t *testing.T) {
	var service *Service

	assert.Nil(t, service.Logger())
	assert.Nil(t, service.Sugar())
	assert.Nil(t, service.With(zap.String("k", "v")))
	assert.Nil(t, NewFromZap(nil))

	assert.NotPanics(t, func() {
		service.Debug("test")
		service.Info("test")
		service.Warn("test")
		service.Error("test")
		service.Infof("test %s", "value")
		service.Errorf("test %s", "value")
		assert.NoError(t, service.Sync())
	})

	empty := &Service{}
	assert.NotPanics(t, func() {
		empty.Info("test")
		empty.Errorf("test %s", "value")
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zapcore.Level
	}{
		{Debug, zapcore.DebugLevel},
		{Info, zapcore.InfoLevel},
		{Warn, zapcore.WarnLevel},
		{Error, zapcore.ErrorLevel},
		{LogLevel("unknown"), zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	service := NewFromZap(zap.New(core))
	e := echo.New()

	handler := func(status int) echo.HandlerFunc {
		return func(c echo.Context) error {
			return c.NoContent(status)
		}
	}

	t.Run("successful request logs at info with client fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/otp/remaining", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		rec := httptest.NewRecorder()

		err := RequestLogger(service)(handler(http.StatusOK))(e.NewContext(req, rec))
		require.NoError(t, err)

		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
		assert.Equal(t, "mobile", logs[0].ContextMap()["client_device"])
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/otp/verify", nil)
		rec := httptest.NewRecorder()

		err := RequestLogger(service)(handler(http.StatusUnprocessableEntity))(e.NewContext(req, rec))
		require.NoError(t, err)

		logs := recorded.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
		assert.NotContains(t, logs[0].ContextMap(), "client_device")
	})

	t.Run("skipped paths are not logged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		err := RequestLogger(service, "/health")(handler(http.StatusOK))(e.NewContext(req, rec))
		require.NoError(t, err)

		assert.Empty(t, recorded.TakeAll())
	})
}
