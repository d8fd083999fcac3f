package main

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/config"
	"github.com/Odwa2003/Phone-Controller/internal/dispatch"
	"github.com/Odwa2003/Phone-Controller/internal/handlers"
	"github.com/Odwa2003/Phone-Controller/internal/llm"
	"github.com/Odwa2003/Phone-Controller/internal/memory"
	"github.com/Odwa2003/Phone-Controller/internal/registry"
	"github.com/Odwa2003/Phone-Controller/internal/translate"
	"github.com/Odwa2003/Phone-Controller/internal/transport"
)

var defaultBounds = backend.Bounds{Width: 1920, Height: 1080}

// agent holds everything shared by the relay client and the listening server.
type agent struct {
	dispatcher *dispatch.Dispatcher
	history    *memory.Manager
	events     transport.EventSink
}

func identity(cfg *config.Config) string {
	if cfg.PairID != "" {
		return cfg.PairID
	}
	return cfg.ServiceName
}

// buildHistory returns the utterance history, backed by Redis when it is
// configured and reachable.
func buildHistory(ctx context.Context, cfg *config.Config, log *zap.Logger) *memory.Manager {
	var store memory.Store = memory.NewInMemoryStore(cfg.HistoryLimit)
	if cfg.RedisURL != "" {
		log.Info("🔌 Connecting to Redis...")
		redisStore, err := memory.NewRedisStore(ctx, cfg.RedisURL, cfg.HistoryTTL, cfg.HistoryLimit)
		if err != nil {
			log.Warn("⚠️ Redis unavailable, keeping history in memory", zap.Error(err))
		} else {
			log.Info("✅ Redis connected")
			store = redisStore
		}
	}
	return memory.NewManager(store, cfg.HistoryLimit, log.Named("memory"))
}

// buildTranslator wires the translator chain and its history.
func buildTranslator(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, log *zap.Logger) (translate.Translator, *memory.Manager, error) {
	provider, err := llm.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if provider != nil {
		log.Info("🤖 Translator provider enabled", zap.String("provider", provider.Name()))
	} else {
		log.Info("📐 Translator provider disabled, using pattern rules only")
	}

	history := buildHistory(ctx, cfg, log)

	tr, err := translate.NewChain(provider, cat, translate.Options{
		Identity: identity(cfg),
		Timeout:  cfg.TranslatorTimeout,
		History:  history,
	}, log.Named("translate"))
	if err != nil {
		history.Close()
		return nil, nil, err
	}
	return tr, history, nil
}

func buildBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (backend.Input, backend.Launcher, backend.Bounds, error) {
	bounds := backend.Bounds{Width: cfg.ScreenWidth, Height: cfg.ScreenHeight}

	if cfg.InputBackend == config.BackendDryRun {
		if bounds.Width == 0 {
			bounds = defaultBounds
		}
		rec := backend.NewRecorder(bounds)
		rec.Hook = func(_ context.Context, op string) error {
			log.Info("🧪 Dry run", zap.String("op", op))
			return nil
		}
		return rec, rec, bounds, nil
	}

	x := backend.NewXDoTool(backend.ExecRunner, cfg.Failsafe, log.Named("xdotool"))
	if bounds.Width == 0 {
		var err error
		bounds, err = x.Size(ctx)
		if err != nil {
			return nil, nil, bounds, fmt.Errorf("failed to read screen size: %w", err)
		}
	}
	return x, backend.NewExecLauncher(log.Named("launcher")), bounds, nil
}

func buildAgent(ctx context.Context, cfg *config.Config, log *zap.Logger) (*agent, error) {
	cat := catalog.New(runtime.GOOS)

	input, launcher, bounds, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("🖥️ Input backend ready",
		zap.String("backend", cfg.InputBackend),
		zap.Int("width", bounds.Width),
		zap.Int("height", bounds.Height))

	reg := registry.New()
	h := handlers.New(handlers.Deps{
		Input:                input,
		Launcher:             launcher,
		Catalog:              cat,
		Bounds:               bounds,
		SystemCommandTimeout: cfg.SystemCommandTimeout,
		Logger:               log.Named("handlers"),
	})
	if err := h.Register(reg); err != nil {
		return nil, err
	}
	log.Info("📋 Command handlers registered", zap.Strings("types", reg.Names()))

	tr, history, err := buildTranslator(ctx, cfg, cat, log)
	if err != nil {
		return nil, err
	}

	events, err := transport.NewEventSink(cfg, log.Named("events"))
	if err != nil {
		log.Warn("⚠️ Event sink unavailable, events are dropped", zap.Error(err))
		events = transport.NopSink{}
	}

	d := dispatch.New(reg, tr, events, dispatch.Options{
		Identity:       identity(cfg),
		CommandPause:   cfg.CommandPause,
		HandlerTimeout: cfg.HandlerTimeout,
	}, log.Named("dispatch"))

	return &agent{
		dispatcher: d,
		history:    history,
		events:     events,
	}, nil
}

func (a *agent) Close(log *zap.Logger) {
	if err := a.history.Close(); err != nil {
		log.Warn("⚠️ Error closing history store", zap.Error(err))
	}
	if err := a.events.Close(); err != nil {
		log.Warn("⚠️ Error closing event sink", zap.Error(err))
	}
}
