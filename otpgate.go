// Package otpgate issues and verifies single-slot one-time codes delivered
// by email or SMS.
package otpgate

import (
	"github.com/tech-arch1tect/otpgate/app"
	"github.com/tech-arch1tect/otpgate/config"
)

type App = app.App

func New() *app.AppBuilder {
	return app.NewApp()
}

// NewServer builds the HTTP service, enabling each delivery channel and
// receipts only when they are configured.
func NewServer(cfg *config.Config) (*App, error) {
	builder := app.NewApp().WithConfig(cfg).WithHTTP()

	if cfg.Mail.FromAddress != "" {
		builder.WithMail()
	}
	if cfg.SMS.BaseURL != "" && cfg.SMS.APIKey != "" {
		builder.WithSMS()
	}
	if cfg.OTP.ReceiptsEnabled {
		builder.WithJWT()
	}

	return builder.Build()
}
