package otp

import (
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/middleware/ratelimit"
	"github.com/tech-arch1tect/otpgate/openapi"
	"github.com/tech-arch1tect/otpgate/server"
	"github.com/tech-arch1tect/otpgate/services/jwt"
	"github.com/tech-arch1tect/otpgate/services/logging"
	otpsvc "github.com/tech-arch1tect/otpgate/services/otp"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	Config   *config.Config
	Service  *otpsvc.Service
	Receipts *jwt.Service `optional:"true"`
	Logger   *logging.Service
}

func ProvideHandler(p HandlerParams) *Handler {
	return NewHandler(p.Config, p.Service, p.Receipts, p.Logger)
}

type RouteParams struct {
	fx.In

	Server  *server.Server
	Handler *Handler
	Store   ratelimit.Store
	Doc     *openapi.OpenAPI `optional:"true"`
}

func RegisterRoutes(p RouteParams) {
	p.Handler.Register(p.Server.Echo(), p.Store, p.Doc)
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
	fx.Invoke(RegisterRoutes),
)
