package handlers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/models"
)

func (h *Handlers) point(x, y float64) backend.Point {
	p := backend.Point{X: int(math.Round(x)), Y: int(math.Round(y))}
	return h.bounds.Clamp(p)
}

// optionalPoint returns nil when the command targets the current position.
func (h *Handlers) optionalPoint(x, y *float64) *backend.Point {
	if x == nil || y == nil {
		return nil
	}
	p := h.point(*x, *y)
	return &p
}

func seconds(v *float64, def time.Duration) time.Duration {
	if v == nil {
		return def
	}
	return time.Duration(*v * float64(time.Second))
}

func (h *Handlers) Click(ctx context.Context, cmd *models.Click) (*models.Envelope, error) {
	p := h.optionalPoint(cmd.X, cmd.Y)
	button := cmd.ButtonOrDefault()
	h.logger.Info("Performing click", zap.Any("point", p), zap.String("button", button))

	if err := h.input.Click(ctx, p, button, 1); err != nil {
		return nil, fmt.Errorf("click failed: %w", err)
	}
	return models.OK(""), nil
}

func (h *Handlers) DoubleClick(ctx context.Context, cmd *models.DoubleClick) (*models.Envelope, error) {
	p := h.optionalPoint(cmd.X, cmd.Y)
	h.logger.Info("Performing double click", zap.Any("point", p))

	if err := h.input.Click(ctx, p, models.ButtonLeft, 2); err != nil {
		return nil, fmt.Errorf("double click failed: %w", err)
	}
	return models.OK(""), nil
}

func (h *Handlers) Move(ctx context.Context, cmd *models.Move) (*models.Envelope, error) {
	p := h.point(*cmd.X, *cmd.Y)
	duration := seconds(cmd.Duration, DefaultMoveDuration)
	h.logger.Info("Moving mouse", zap.Int("x", p.X), zap.Int("y", p.Y), zap.Duration("duration", duration))

	if err := h.input.MoveTo(ctx, p, duration); err != nil {
		return nil, fmt.Errorf("move failed: %w", err)
	}
	return models.OK(""), nil
}

func (h *Handlers) Type(ctx context.Context, cmd *models.TypeText) (*models.Envelope, error) {
	interval := seconds(cmd.Interval, DefaultTypeInterval)
	h.logger.Info("Typing text", zap.Int("length", len(cmd.Text)), zap.Duration("interval", interval))

	if err := h.input.Write(ctx, cmd.Text, interval); err != nil {
		return nil, fmt.Errorf("type failed: %w", err)
	}
	return models.OK(""), nil
}

// Scroll uses clicks when given (positive is up), otherwise one step in
// direction, down by default.
func (h *Handlers) Scroll(ctx context.Context, cmd *models.Scroll) (*models.Envelope, error) {
	var clicks int
	switch {
	case cmd.Clicks != nil:
		clicks = *cmd.Clicks
	case strings.EqualFold(cmd.Direction, models.DirectionUp):
		clicks = ScrollStep
	default:
		clicks = -ScrollStep
	}
	h.logger.Info("Scrolling", zap.Int("clicks", clicks))

	if err := h.input.Scroll(ctx, clicks); err != nil {
		return nil, fmt.Errorf("scroll failed: %w", err)
	}
	return models.OK(""), nil
}

func (h *Handlers) Press(ctx context.Context, cmd *models.KeyPress) (*models.Envelope, error) {
	key := normalizeKey(cmd.Key)
	h.logger.Info("Pressing key", zap.String("key", key))

	if err := h.input.Press(ctx, key); err != nil {
		return nil, fmt.Errorf("key press failed: %w", err)
	}
	return models.OK(""), nil
}

func (h *Handlers) Hotkey(ctx context.Context, cmd *models.Hotkey) (*models.Envelope, error) {
	keys := make([]string, 0, len(cmd.Keys))
	for _, k := range cmd.Keys {
		keys = append(keys, normalizeKey(k))
	}
	h.logger.Info("Pressing hotkey", zap.Strings("keys", keys))

	if err := h.input.Hotkey(ctx, keys); err != nil {
		return nil, fmt.Errorf("hotkey failed: %w", err)
	}
	return models.OK(""), nil
}

var keyAliases = map[string]string{
	"esc":     "escape",
	"return":  "enter",
	"control": "ctrl",
	"del":     "delete",
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}
