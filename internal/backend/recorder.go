package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Call is one recorded backend invocation.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		parts = append(parts, fmt.Sprint(a))
	}
	return c.Op + "(" + strings.Join(parts, ", ") + ")"
}

// Recorder implements Input and Launcher without touching the desktop.
// It backs dry-run mode and tests.
type Recorder struct {
	mu     sync.Mutex
	bounds Bounds
	pos    Point
	calls  []Call

	// Hook, when set, runs before each call is recorded; a non-nil result
	// is returned instead.
	Hook func(ctx context.Context, op string) error
}

func NewRecorder(bounds Bounds) *Recorder {
	return &Recorder{bounds: bounds, pos: Point{X: bounds.Width / 2, Y: bounds.Height / 2}}
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(ctx context.Context, op string, args ...any) error {
	if r.Hook != nil {
		if err := r.Hook(ctx, op); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	return nil
}

func (r *Recorder) Size(context.Context) (Bounds, error) {
	return r.bounds, nil
}

func (r *Recorder) Position(context.Context) (Point, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos, nil
}

func (r *Recorder) MoveTo(ctx context.Context, p Point, duration time.Duration) error {
	if err := r.record(ctx, "move", p.X, p.Y, duration); err != nil {
		return err
	}
	r.mu.Lock()
	r.pos = p
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Click(ctx context.Context, p *Point, button string, count int) error {
	if p == nil {
		return r.record(ctx, "click", "current", button, count)
	}
	if err := r.record(ctx, "click", p.X, p.Y, button, count); err != nil {
		return err
	}
	r.mu.Lock()
	r.pos = *p
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Scroll(ctx context.Context, clicks int) error {
	return r.record(ctx, "scroll", clicks)
}

func (r *Recorder) Write(ctx context.Context, text string, interval time.Duration) error {
	return r.record(ctx, "write", text, interval)
}

func (r *Recorder) Press(ctx context.Context, key string) error {
	return r.record(ctx, "press", key)
}

func (r *Recorder) Hotkey(ctx context.Context, keys []string) error {
	return r.record(ctx, "hotkey", strings.Join(keys, "+"))
}

func (r *Recorder) Start(ctx context.Context, argv []string) error {
	return r.record(ctx, "start", strings.Join(argv, " "))
}

func (r *Recorder) Run(ctx context.Context, argv []string) error {
	return r.record(ctx, "run", strings.Join(argv, " "))
}
