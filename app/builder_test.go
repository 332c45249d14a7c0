package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/otp"
	"github.com/tech-arch1tect/otpgate/testutils"
	"go.uber.org/fx"
)

func createTestConfig() *config.Config {
	cfg := testutils.GetTestConfig()
	cfg.Log.Output = "stderr"
	return cfg
}

func TestNewApp(t *testing.T) {
	builder := NewApp()

	assert.NotNil(t, builder)
	assert.Empty(t, builder.services)
	assert.Empty(t, builder.models)
	assert.Empty(t, builder.fxOptions)
	assert.Empty(t, builder.errors)
}

func TestAppBuilder_WithConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := createTestConfig()
		builder := NewApp()

		result := builder.WithConfig(cfg)

		assert.Equal(t, builder, result)
		assert.Equal(t, cfg, builder.config)
	})

	t.Run("nil config", func(t *testing.T) {
		builder := NewApp()

		result := builder.WithConfig(nil)

		assert.Equal(t, builder, result)
		assert.Nil(t, builder.config)
		require.Len(t, builder.errors, 1)
		assert.Contains(t, builder.errors[0].Error(), "config cannot be nil")
	})
}

func TestAppBuilder_ServiceFlags(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(*AppBuilder) *AppBuilder
		expected []string
	}{
		{"database", func(b *AppBuilder) *AppBuilder { return b.WithDatabase() }, []string{"database"}},
		{"redis", (*AppBuilder).WithRedis, []string{"redis"}},
		{"mail", (*AppBuilder).WithMail, []string{"mail"}},
		{"sms", (*AppBuilder).WithSMS, []string{"sms"}},
		{"otp", (*AppBuilder).WithOTP, []string{"otp"}},
		{"jwt", (*AppBuilder).WithJWT, []string{"jwt"}},
		{"http implies otp", (*AppBuilder).WithHTTP, []string{"http", "otp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewApp()

			result := tt.apply(builder)

			assert.Equal(t, builder, result)
			for _, service := range tt.expected {
				assert.True(t, builder.services[service], service)
			}
			assert.Len(t, builder.services, len(tt.expected))
		})
	}
}

func TestAppBuilder_WithDatabase(t *testing.T) {
	type TestModel struct {
		ID uint `gorm:"primaryKey"`
	}

	builder := NewApp().WithDatabase(TestModel{}, &TestModel{})

	assert.True(t, builder.services["database"])
	assert.Len(t, builder.models, 2)
}

func TestAppBuilder_WithSSL(t *testing.T) {
	t.Run("valid files", func(t *testing.T) {
		builder := NewApp().WithSSL("cert.pem", "key.pem")

		assert.True(t, builder.services["ssl"])
		require.NotNil(t, builder.tls)
		assert.Equal(t, "cert.pem", builder.tls.CertFile)
		assert.Equal(t, "key.pem", builder.tls.KeyFile)
	})

	t.Run("missing key", func(t *testing.T) {
		builder := NewApp().WithSSL("cert.pem", "")

		assert.False(t, builder.services["ssl"])
		assert.Nil(t, builder.tls)
		require.Len(t, builder.errors, 1)
	})
}

func TestAppBuilder_WithFxOptions(t *testing.T) {
	builder := NewApp().WithFxOptions(fx.NopLogger, fx.Supply("extra"))

	assert.Len(t, builder.fxOptions, 2)
}

func TestAppBuilder_validate(t *testing.T) {
	t.Run("collected errors fail", func(t *testing.T) {
		builder := NewApp().WithConfig(nil)

		err := builder.validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration errors")
	})

	t.Run("database store enables database and model", func(t *testing.T) {
		builder := NewApp().WithConfig(createTestConfig()).WithOTP()

		require.NoError(t, builder.validate())

		assert.True(t, builder.services["database"])
		assert.False(t, builder.services["redis"])
		assert.Contains(t, builder.models, &otp.Challenge{})
	})

	t.Run("redis store enables redis", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.OTP.Store = config.OTPStoreRedis
		builder := NewApp().WithConfig(cfg).WithOTP()

		require.NoError(t, builder.validate())

		assert.True(t, builder.services["redis"])
		assert.False(t, builder.services["database"])
	})

	t.Run("redis rate limits enable redis", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.RateLimit.Store = "redis"
		builder := NewApp().WithConfig(cfg).WithHTTP()

		require.NoError(t, builder.validate())

		assert.True(t, builder.services["redis"])
	})

	t.Run("unknown store fails", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.OTP.Store = "memcached"

		err := NewApp().WithConfig(cfg).WithOTP().validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported OTP store")
	})
}

func TestAppBuilder_createLogger(t *testing.T) {
	t.Run("with config", func(t *testing.T) {
		logger, err := NewApp().WithConfig(createTestConfig()).createLogger()

		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("without config", func(t *testing.T) {
		logger, err := NewApp().createLogger()

		require.Error(t, err)
		assert.Nil(t, logger)
	})
}

func TestAppBuilder_Build(t *testing.T) {
	t.Run("minimal app", func(t *testing.T) {
		app, err := NewApp().WithConfig(createTestConfig()).Build()

		require.NoError(t, err)
		assert.NotNil(t, app.HTTPServer())
		assert.Nil(t, app.DB())
		assert.Nil(t, app.OTP())
	})

	t.Run("otp over http", func(t *testing.T) {
		app, err := NewApp().
			WithConfig(createTestConfig()).
			WithJWT().
			WithHTTP().
			Build()

		require.NoError(t, err)
		assert.NotNil(t, app.DB())
		assert.NotNil(t, app.OTP())
		assert.True(t, app.DB().Migrator().HasTable(&otp.Challenge{}))
	})

	t.Run("builder errors are returned", func(t *testing.T) {
		app, err := NewApp().WithConfig(createTestConfig()).WithSSL("", "").Build()

		require.Error(t, err)
		assert.Nil(t, app)
	})

	t.Run("unreachable redis fails assembly", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.OTP.Store = config.OTPStoreRedis
		cfg.Redis.Addr = "127.0.0.1:1"

		app, err := NewApp().WithConfig(cfg).WithOTP().Build()

		require.Error(t, err)
		assert.Nil(t, app)
		assert.Contains(t, err.Error(), "failed to assemble application")
	})
}
