package app

import (
	"fmt"

	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/database"
	otphandlers "github.com/tech-arch1tect/otpgate/handlers/otp"
	"github.com/tech-arch1tect/otpgate/middleware/ratelimit"
	"github.com/tech-arch1tect/otpgate/openapi"
	"github.com/tech-arch1tect/otpgate/server"
	"github.com/tech-arch1tect/otpgate/services/jwt"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"github.com/tech-arch1tect/otpgate/services/mail"
	"github.com/tech-arch1tect/otpgate/services/otp"
	"github.com/tech-arch1tect/otpgate/services/sms"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
	tls       *server.TLSConfig
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.services["database"] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithRedis() *AppBuilder {
	b.services["redis"] = true
	return b
}

func (b *AppBuilder) WithMail() *AppBuilder {
	b.services["mail"] = true
	return b
}

func (b *AppBuilder) WithSMS() *AppBuilder {
	b.services["sms"] = true
	return b
}

// WithOTP enables challenge issuance and verification. The backing store is
// chosen by OTP_STORE when the app is built.
func (b *AppBuilder) WithOTP() *AppBuilder {
	b.services["otp"] = true
	return b
}

func (b *AppBuilder) WithJWT() *AppBuilder {
	b.services["jwt"] = true
	return b
}

// WithHTTP mounts the challenge API, its rate limits and the OpenAPI document.
func (b *AppBuilder) WithHTTP() *AppBuilder {
	b.services["http"] = true
	b.services["otp"] = true
	return b
}

func (b *AppBuilder) WithSSL(certFile, keyFile string) *AppBuilder {
	if certFile == "" || keyFile == "" {
		b.addError("SSL cert file and key file cannot be empty")
		return b
	}
	b.services["ssl"] = true
	b.tls = &server.TLSConfig{CertFile: certFile, KeyFile: keyFile}
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil {
		b.WithAutoConfig()
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	services, err := b.buildServices(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build services: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
		db:     services.database,
	}

	fxOptions := b.buildFxOptions(services, logger)
	fxOptions = append(fxOptions, fx.Invoke(func(p appParams) {
		app.server = p.Server
		app.otp = p.OTP
	}))

	app.fx = fx.New(fxOptions...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}

	return app, nil
}

type appParams struct {
	fx.In

	Server *server.Server
	OTP    *otp.Service `optional:"true"`
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

// validate reports builder errors and enables the services the selected
// OTP store depends on.
func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}

	if b.config == nil {
		return fmt.Errorf("config is required")
	}

	if b.services["otp"] {
		switch b.config.OTP.Store {
		case config.OTPStoreRedis:
			b.services["redis"] = true
		case config.OTPStoreDatabase, "":
			b.services["database"] = true
			b.models = append(b.models, &otp.Challenge{})
		default:
			return fmt.Errorf("unsupported OTP store %q", b.config.OTP.Store)
		}
	}

	if b.services["http"] && b.config.RateLimit.Store == "redis" {
		b.services["redis"] = true
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}

	return logging.NewService(logging.ConfigFrom(b.config.Log))
}

type ServiceContainer struct {
	database *gorm.DB
}

func (b *AppBuilder) buildServices(logger *logging.Service) (*ServiceContainer, error) {
	services := &ServiceContainer{}

	if b.services["database"] {
		modelsOpt := &database.ModelsOption{}
		if len(b.models) > 0 {
			modelsOpt = database.WithModels(b.models...)
		}

		db, err := database.ProvideDatabase(*b.config, modelsOpt, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		services.database = db
	}

	return services, nil
}

func (b *AppBuilder) buildFxOptions(services *ServiceContainer, logger *logging.Service) []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fx.NopLogger,
		server.NewProvider(),
	}

	if b.tls != nil {
		options = append(options, fx.Supply(b.tls))
	}
	if services.database != nil {
		options = append(options, fx.Supply(services.database))
	}
	if b.services["redis"] {
		options = append(options, database.RedisModule)
	}
	if b.services["mail"] {
		options = append(options, mail.Module)
	}
	if b.services["sms"] {
		options = append(options, sms.Module)
	}
	if b.services["jwt"] {
		options = append(options, jwt.Module)
	}
	if b.services["otp"] {
		options = append(options, otp.Module)
	}
	if b.services["http"] {
		options = append(options,
			fx.Provide(ratelimit.ProvideRateLimitStore),
			openapi.Module,
			otphandlers.Module,
		)
	}

	options = append(options, b.fxOptions...)

	return options
}
