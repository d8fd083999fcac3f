// Package dispatch validates inbound frames, routes them to handlers and
// builds the response envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/registry"
	"github.com/Odwa2003/Phone-Controller/internal/translate"
	"github.com/Odwa2003/Phone-Controller/internal/transport"
)

const maxErrorLength = 200

// ControlHandler receives reserved frames (auth, presence, relay errors).
// A nil envelope means nothing is sent back.
type ControlHandler interface {
	HandleControl(ctx context.Context, frame models.Frame) *models.Envelope
}

type Options struct {
	Identity       string        // reported on events
	CommandPause   time.Duration // between translated sub-commands
	HandlerTimeout time.Duration

	// Sleep waits between sub-commands; nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher runs one command pipeline at a time.
type Dispatcher struct {
	registry   *registry.Registry
	translator translate.Translator
	events     transport.EventSink
	opts       Options
	logger     *zap.Logger

	mu sync.Mutex
}

func New(reg *registry.Registry, translator translate.Translator, events transport.EventSink, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if events == nil {
		events = transport.NopSink{}
	}
	return &Dispatcher{
		registry:   reg,
		translator: translator,
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// Dispatch handles one raw frame. It returns nil when there is nothing to
// send back. control may be nil, in which case reserved frames are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte, control ControlHandler) *models.Envelope {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		d.logger.Warn("Received invalid JSON", zap.Error(err))
		return models.Failed(models.ErrMsgInvalidJSON)
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return models.Failed(models.ErrMsgNotObject)
	}

	frame := models.Frame{Raw: raw}
	frame.Type, _ = obj["type"].(string)
	if seq, ok := obj["seq"].(float64); ok && seq >= 0 {
		frame.Seq = uint64(seq)
	}

	if models.IsReserved(frame.Type) {
		if control == nil {
			return nil
		}
		return control.HandleControl(ctx, frame)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var env *models.Envelope
	if frame.Type == models.TypeAICommand {
		env = d.dispatchAI(ctx, frame)
	} else {
		env = d.dispatchCommand(ctx, frame)
	}
	env.Seq = frame.Seq
	return env
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, frame models.Frame) *models.Envelope {
	handler, err := d.registry.Resolve(frame.Type)
	if err != nil {
		d.logger.Warn("Unknown command type", zap.String("type", frame.Type))
		return models.Failed(fmt.Sprintf(models.ErrMsgUnknownType, frame.Type))
	}

	cmd, err := models.DecodeCommand(frame.Raw)
	if err != nil {
		d.logger.Warn("Rejected command", zap.String("type", frame.Type), zap.Error(err))
		env := d.errorEnvelope(err)
		d.publish(frame.Type, env, 0, false)
		return env
	}

	env := d.execute(ctx, cmd, handler)
	d.publish(cmd.CommandType(), env, 0, false)
	return env
}

func (d *Dispatcher) dispatchAI(ctx context.Context, frame models.Frame) *models.Envelope {
	decoded, err := models.DecodeCommand(frame.Raw)
	if err != nil {
		return d.errorEnvelope(err)
	}
	cmd := decoded.(*models.AICommand)

	tr := d.translator.Translate(ctx, cmd.Text)
	d.logger.Info("Translated command",
		zap.String("text", cmd.Text),
		zap.Int("commands", len(tr.Commands)),
		zap.Bool("ai_processed", tr.AIProcessed))

	allOK := len(tr.Commands) > 0
	results := make([]*models.Envelope, 0, len(tr.Commands))
	for i, tc := range tr.Commands {
		if i > 0 && d.opts.CommandPause > 0 {
			if err := d.opts.Sleep(ctx, d.opts.CommandPause); err != nil {
				allOK = false
				break
			}
		}

		env := d.runTranslated(ctx, tc.Command)
		env.Command = tc.Command.CommandType()
		d.publish(tc.Command.CommandType(), env, tc.Confidence, tc.AIProcessed)

		results = append(results, env)
		allOK = allOK && env.OK
		if env.Error == models.ErrMsgFailsafe {
			d.logger.Warn("Stopping translated commands after failsafe", zap.Int("remaining", len(tr.Commands)-i-1))
			break
		}
	}

	count := len(tr.Commands)
	aiProcessed := tr.AIProcessed
	return &models.Envelope{
		OK:           allOK,
		Results:      results,
		AICommands:   tr.Commands,
		CommandCount: &count,
		OriginalText: tr.Original,
		AIProcessed:  &aiProcessed,
	}
}

// runTranslated executes a command produced by a translator. It never
// reaches ai_command, which has no registered handler.
func (d *Dispatcher) runTranslated(ctx context.Context, cmd models.Command) *models.Envelope {
	handler, err := d.registry.Resolve(cmd.CommandType())
	if err != nil {
		return models.Failed(fmt.Sprintf(models.ErrMsgUnknownType, cmd.CommandType()))
	}
	if err := cmd.Validate(); err != nil {
		return d.errorEnvelope(err)
	}
	return d.execute(ctx, cmd, handler)
}

// execute calls handler once under the handler timeout, recovering panics.
func (d *Dispatcher) execute(ctx context.Context, cmd models.Command, handler registry.Handler) (env *models.Envelope) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.HandlerTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Handler panicked",
				zap.String("type", cmd.CommandType()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			env = models.Failed(sanitize(fmt.Sprintf("Handler error: %v", r)))
		}
	}()

	var err error
	env, err = handler(ctx, cmd)
	if err != nil {
		env = d.errorEnvelope(err)
	} else if env == nil {
		env = models.OK("")
	}

	d.logger.Debug("Command handled",
		zap.String("type", cmd.CommandType()),
		zap.Bool("ok", env.OK),
		zap.Duration("duration", time.Since(start)))
	return env
}

func (d *Dispatcher) errorEnvelope(err error) *models.Envelope {
	if errors.Is(err, backend.ErrAborted) {
		d.logger.Warn("Action aborted by failsafe")
		return models.Failed(models.ErrMsgFailsafe)
	}
	if f, ok := models.AsFault(err); ok {
		return models.Failed(f.Msg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		d.logger.Warn("Command timed out", zap.Error(err))
		return models.Failed("Command timed out")
	}
	d.logger.Error("Command failed", zap.Error(err))
	return models.Failed(sanitize(err.Error()))
}

func (d *Dispatcher) publish(command string, env *models.Envelope, confidence float64, aiProcessed bool) {
	ok := env.OK
	d.events.Publish(models.Event{
		Kind:        models.EventCommand,
		Identity:    d.opts.Identity,
		Command:     command,
		OK:          &ok,
		Error:       env.Error,
		Confidence:  confidence,
		AIProcessed: aiProcessed,
		Timestamp:   time.Now().UTC(),
	})
}

// sanitize keeps error text to a single bounded line.
func sanitize(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength] + "..."
	}
	return msg
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
