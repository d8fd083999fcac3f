package handlers

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/models"
)

// OpenApp launches an application from the catalog. Anything else is refused.
func (h *Handlers) OpenApp(ctx context.Context, cmd *models.OpenApp) (*models.Envelope, error) {
	id, ok := h.catalog.ResolveApp(cmd.Name())
	if !ok {
		h.logger.Warn("Refused unapproved application", zap.String("target", cmd.Name()))
		return models.Failed("Application not approved"), nil
	}
	argv, ok := h.catalog.AppCommand(id)
	if !ok {
		return models.Failed("Application not available on this system"), nil
	}

	h.logger.Info("Launching application", zap.String("app", id))
	if err := h.launcher.Start(ctx, argv); err != nil {
		h.logger.Error("Failed to launch application", zap.String("app", id), zap.Error(err))
		return models.Failed("Failed to launch " + id), nil
	}
	return models.OK("Launched " + id), nil
}

// NavigateURL opens an http(s) address in the default browser. A bare host
// gets an https scheme.
func (h *Handlers) NavigateURL(ctx context.Context, cmd *models.NavigateURL) (*models.Envelope, error) {
	target := strings.TrimSpace(cmd.Target)
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.logger.Warn("Refused URL", zap.String("target", cmd.Target))
		return models.Failed("Invalid URL"), nil
	}

	argv, ok := h.catalog.URLCommand(u.String())
	if !ok {
		return models.Failed("No browser opener on this system"), nil
	}

	h.logger.Info("Opening URL", zap.String("host", u.Host))
	if err := h.launcher.Start(ctx, argv); err != nil {
		h.logger.Error("Failed to open URL", zap.Error(err))
		return models.Failed("Failed to open URL"), nil
	}
	return models.OK("Opened " + u.String()), nil
}

// SystemCommand runs a catalog system action. An action still running when
// the system timeout fires is reported as initiated.
func (h *Handlers) SystemCommand(ctx context.Context, cmd *models.SystemCommand) (*models.Envelope, error) {
	argv, ok := h.catalog.ActionCommand(cmd.Action)
	if !ok {
		return models.Failed("Command not approved"), nil
	}

	h.logger.Info("Executing system command", zap.String("action", cmd.Action))

	runCtx, cancel := context.WithTimeout(ctx, h.systemTimeout)
	defer cancel()

	err := h.launcher.Run(runCtx, argv)
	switch {
	case err == nil:
		return models.OK("Command executed"), nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		h.logger.Warn("System command timed out", zap.String("action", cmd.Action))
		return models.OK("Command initiated"), nil
	default:
		h.logger.Error("System command failed", zap.String("action", cmd.Action), zap.Error(err))
		return models.Failed("Command failed"), nil
	}
}
