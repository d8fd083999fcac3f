package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Odwa2003/Phone-Controller/internal/server"
)

var serveWithRelay bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept phone connections directly instead of through a relay",
	Long: `serve listens for WebSocket connections on /ws. Clients authenticate with
the shared token, either in an auth frame or as a ?token= query parameter,
and the connection closes after too many failed attempts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	logger.Info("🚀 Starting pc-agent server",
		zap.String("addr", cfg.ListenAddr),
		zap.String("backend", cfg.InputBackend),
		zap.Bool("relay", serveWithRelay))

	a, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	srv := server.NewServer(a.dispatcher, server.Options{
		Token:           cfg.Token,
		MaxAuthFailures: cfg.MaxAuthFailures,
		AllowedOrigin:   cfg.AllowedOrigin,
		PingInterval:    cfg.RelayPingInterval,
	}, logger.Named("server"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.ListenAddr) })
	if serveWithRelay {
		client := newRelayClient(cfg, a, logger)
		g.Go(func() error { return client.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("👋 pc-agent server stopped")
	return nil
}
