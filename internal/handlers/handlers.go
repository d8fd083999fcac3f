// Package handlers performs the effect of each command through the input
// backend and launcher.
package handlers

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/registry"
)

// Defaults applied when a command leaves its timing unset.
const (
	DefaultMoveDuration = 100 * time.Millisecond
	DefaultTypeInterval = 50 * time.Millisecond
	ScrollStep          = 100
)

// Deps is what the handlers act through.
type Deps struct {
	Input    backend.Input
	Launcher backend.Launcher
	Catalog  *catalog.Catalog
	Bounds   backend.Bounds // read once at startup

	SystemCommandTimeout time.Duration
	Logger               *zap.Logger
}

type Handlers struct {
	input    backend.Input
	launcher backend.Launcher
	catalog  *catalog.Catalog
	bounds   backend.Bounds

	systemTimeout time.Duration
	logger        *zap.Logger
}

func New(deps Deps) *Handlers {
	timeout := deps.SystemCommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handlers{
		input:         deps.Input,
		launcher:      deps.Launcher,
		catalog:       deps.Catalog,
		bounds:        deps.Bounds,
		systemTimeout: timeout,
		logger:        deps.Logger,
	}
}

// Register binds every command type, aliases included.
func (h *Handlers) Register(reg *registry.Registry) error {
	table := map[string]registry.Handler{
		models.TypeClick:            registry.Typed(h.Click),
		models.TypeMouseClick:       registry.Typed(h.Click),
		models.TypeDoubleClick:      registry.Typed(h.DoubleClick),
		models.TypeMouseDoubleClick: registry.Typed(h.DoubleClick),
		models.TypeMove:             registry.Typed(h.Move),
		models.TypeMouseMove:        registry.Typed(h.Move),
		models.TypeType:             registry.Typed(h.Type),
		models.TypeKeyboardType:     registry.Typed(h.Type),
		models.TypeScroll:           registry.Typed(h.Scroll),
		models.TypeMouseScroll:      registry.Typed(h.Scroll),
		models.TypeKey:              registry.Typed(h.Press),
		models.TypeKeyboardPress:    registry.Typed(h.Press),
		models.TypePressKey:         registry.Typed(h.Press),
		models.TypeHotkey:           registry.Typed(h.Hotkey),
		models.TypeKeyboardHotkey:   registry.Typed(h.Hotkey),
		models.TypeOpenApp:          registry.Typed(h.OpenApp),
		models.TypeLaunchApp:        registry.Typed(h.OpenApp),
		models.TypeNavigateURL:      registry.Typed(h.NavigateURL),
		models.TypeSystemCommand:    registry.Typed(h.SystemCommand),
	}
	for name, handler := range table {
		if err := reg.Register(name, handler); err != nil {
			return fmt.Errorf("failed to register handlers: %w", err)
		}
	}
	return nil
}
