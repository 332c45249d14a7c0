package openapi

import (
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/server"
	"go.uber.org/fx"
)

const Version = "1.0.0"

func ProvideDocument(cfg *config.Config) *OpenAPI {
	return New(cfg.App.Name, Version).
		Description("Issue and verify one-time codes delivered by email or SMS.").
		Server(cfg.App.URL, "")
}

var Module = fx.Options(
	fx.Provide(ProvideDocument),
	fx.Invoke(func(srv *server.Server, doc *OpenAPI) {
		doc.Register(srv.Echo())
	}),
)
