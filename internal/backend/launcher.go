package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// ExecLauncher starts catalog programs with os/exec. No shell is involved.
type ExecLauncher struct {
	logger *zap.Logger
}

func NewExecLauncher(logger *zap.Logger) *ExecLauncher {
	return &ExecLauncher{logger: logger}
}

func (l *ExecLauncher) Start(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("Launched process exited", zap.String("program", argv[0]), zap.Error(err))
		}
	}()
	return nil
}

func (l *ExecLauncher) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return nil
}
