package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/app"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/logging"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, chat WebSocket and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start()

			srv := server.New(a.Engine,
				server.WithBus(a.Bus),
				server.WithMetrics(a.Metrics, a.Registry),
				server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
				server.WithLogger(logging.WithComponent(log.Logger, "server")),
			)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx, server.RunConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout.Std(),
				WriteTimeout:    cfg.Server.WriteTimeout.Std(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
