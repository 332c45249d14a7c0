package logging

import (
	"github.com/tech-arch1tect/otpgate/config"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewLoggingService),
)

func NewLoggingService(cfg *config.Config) (*Service, error) {
	return NewService(ConfigFrom(cfg.Log))
}

func ConfigFrom(cfg config.LogConfig) Config {
	return Config{
		Level:      LogLevel(cfg.Level),
		Format:     cfg.Format,
		OutputPath: cfg.Output,
		Rotation: RotationConfig{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}
}
