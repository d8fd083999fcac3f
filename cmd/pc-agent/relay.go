package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Odwa2003/Phone-Controller/internal/config"
	"github.com/Odwa2003/Phone-Controller/internal/session"
	"github.com/Odwa2003/Phone-Controller/internal/transport"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRelayClient(cfg *config.Config, a *agent, log *zap.Logger) *session.Manager {
	query := url.Values{"client": {"pc"}}
	if cfg.RelayQueryAuth {
		query.Set("token", cfg.Token)
		if cfg.PairID != "" {
			query.Set("pairId", cfg.PairID)
		}
	}

	dialer := &transport.WSDialer{
		URL:              cfg.RelayURL,
		Query:            query,
		HandshakeTimeout: cfg.RelayAuthTimeout,
		PingInterval:     cfg.RelayPingInterval,
		Logger:           log.Named("ws"),
	}

	return session.NewManager(dialer, a.dispatcher, a.events, session.Options{
		Identity:         cfg.PairID,
		Token:            cfg.Token,
		AuthAck:          cfg.RelayAuthAck,
		AuthTimeout:      cfg.RelayAuthTimeout,
		ReconnectFloor:   cfg.ReconnectFloor,
		ReconnectCeiling: cfg.ReconnectCeiling,
		ReconnectFactor:  cfg.ReconnectFactor,
		OnState: func(s session.State) {
			if s == session.Ready {
				log.Info("✅ Connected to relay", zap.String("pair_id", cfg.PairID))
			}
		},
	}, log.Named("session"))
}

func runRelay(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	relayURL, err := url.Parse(cfg.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}

	logger.Info("🚀 Starting pc-agent relay client",
		zap.String("relay", transport.RedactURL(relayURL)),
		zap.String("pair_id", cfg.PairID),
		zap.String("backend", cfg.InputBackend))

	a, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	client := newRelayClient(cfg, a, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("🛑 Shutting down relay client...")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("👋 pc-agent stopped")
	return nil
}
