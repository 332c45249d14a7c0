package sms

import (
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/fx"
)

func ProvideClient(cfg *config.Config, logger *logging.Service) (*Client, error) {
	return NewClient(&cfg.SMS, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideClient),
)
