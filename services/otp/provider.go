package otp

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/internal/clock"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"github.com/tech-arch1tect/otpgate/services/mail"
	"github.com/tech-arch1tect/otpgate/services/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BackendParams struct {
	fx.In

	Config *config.Config
	DB     *gorm.DB      `optional:"true"`
	Redis  *redis.Client `optional:"true"`
	Logger *logging.Service
}

// ProvideBackend picks the persistence backend named by OTP_STORE.
func ProvideBackend(p BackendParams) (Backend, error) {
	switch p.Config.OTP.Store {
	case config.OTPStoreRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("OTP store %q requires a redis client", p.Config.OTP.Store)
		}
		backend := NewRedisBackend(p.Redis, p.Config.Redis.Prefix)
		if p.Logger != nil {
			p.Logger.Info("using redis challenge backend", zap.String("key", backend.Key()))
		}
		return backend, nil
	case config.OTPStoreDatabase, "":
		if p.DB == nil {
			return nil, fmt.Errorf("OTP store %q requires a database", config.OTPStoreDatabase)
		}
		if p.Logger != nil {
			p.Logger.Info("using database challenge backend", zap.String("table", Challenge{}.TableName()))
		}
		return NewGormBackend(p.DB), nil
	default:
		return nil, fmt.Errorf("unsupported OTP store: %s", p.Config.OTP.Store)
	}
}

func ProvideStore(cfg *config.Config, backend Backend, clk clock.Clock) *Store {
	return NewStore(backend, clk, cfg.OTP.Expiry)
}

type DispatcherParams struct {
	fx.In

	Config *config.Config
	Mail   *mail.Service `optional:"true"`
	SMS    *sms.Client   `optional:"true"`
	Logger *logging.Service
}

func ProvideDispatcher(p DispatcherParams) Dispatcher {
	var mailSender MailSender
	if p.Mail != nil {
		mailSender = p.Mail
	}
	var smsSender SMSSender
	if p.SMS != nil {
		smsSender = p.SMS
	}

	if p.Logger != nil {
		p.Logger.Info("configuring challenge delivery",
			zap.Bool("email", mailSender != nil),
			zap.Bool("sms", smsSender != nil))
	}

	return NewChannelDispatcher(p.Config.App.Name, p.Config.OTP.EmailTemplate, mailSender, smsSender)
}

func NewProvider(cfg *config.Config, store *Store, dispatcher Dispatcher, logger *logging.Service) *Service {
	return NewService(cfg, store, dispatcher, logger)
}

var Module = fx.Options(
	fx.Provide(clock.New),
	fx.Provide(ProvideBackend),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideDispatcher),
	fx.Provide(NewProvider),
)
