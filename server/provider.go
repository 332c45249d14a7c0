package server

import (
	"context"

	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Server *Server
	TLS    *TLSConfig `optional:"true"`
}

func NewProvider() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, p Params) {
			if p.TLS != nil {
				p.Server.WithTLS(p.TLS)
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						_ = p.Server.Start()
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return p.Server.Shutdown(ctx)
				},
			})
		}),
	)
}
