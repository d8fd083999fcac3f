package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Runner executes one xdotool invocation and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// ExecRunner runs the xdotool binary found on PATH.
func ExecRunner(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "xdotool", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("xdotool %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

const (
	moveStep  = 10 * time.Millisecond
	typeChunk = 8
)

// XDoTool drives an X11 desktop through the xdotool binary.
type XDoTool struct {
	run      Runner
	failsafe bool
	logger   *zap.Logger
}

// NewXDoTool returns an Input backed by run. With failsafe on, parking the
// pointer in the top-left corner aborts the action in progress.
func NewXDoTool(run Runner, failsafe bool, logger *zap.Logger) *XDoTool {
	if run == nil {
		run = ExecRunner
	}
	return &XDoTool{run: run, failsafe: failsafe, logger: logger}
}

func (x *XDoTool) Size(ctx context.Context) (Bounds, error) {
	out, err := x.run(ctx, "getdisplaygeometry")
	if err != nil {
		return Bounds{}, err
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return Bounds{}, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return Bounds{}, fmt.Errorf("unexpected display geometry %q", strings.TrimSpace(string(out)))
	}
	return Bounds{Width: w, Height: h}, nil
}

func (x *XDoTool) Position(ctx context.Context) (Point, error) {
	out, err := x.run(ctx, "getmouselocation", "--shell")
	if err != nil {
		return Point{}, err
	}
	var p Point
	var seen int
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		switch key {
		case "X":
			p.X = n
			seen++
		case "Y":
			p.Y = n
			seen++
		}
	}
	if seen != 2 {
		return Point{}, fmt.Errorf("unexpected mouse location %q", strings.TrimSpace(string(out)))
	}
	return p, nil
}

func (x *XDoTool) checkFailsafe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !x.failsafe {
		return nil
	}
	p, err := x.Position(ctx)
	if err != nil {
		return err
	}
	if p.X <= 0 && p.Y <= 0 {
		x.logger.Warn("Action aborted by failsafe")
		return ErrAborted
	}
	return nil
}

func (x *XDoTool) MoveTo(ctx context.Context, p Point, duration time.Duration) error {
	if err := x.checkFailsafe(ctx); err != nil {
		return err
	}
	steps := int(duration / moveStep)
	if steps <= 1 {
		_, err := x.run(ctx, "mousemove", itoa(p.X), itoa(p.Y))
		return err
	}

	from, err := x.Position(ctx)
	if err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		nx := from.X + (p.X-from.X)*i/steps
		ny := from.Y + (p.Y-from.Y)*i/steps
		if _, err := x.run(ctx, "mousemove", itoa(nx), itoa(ny)); err != nil {
			return err
		}
		if i == steps {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(moveStep):
		}
		if err := x.checkFailsafe(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (x *XDoTool) Click(ctx context.Context, p *Point, button string, count int) error {
	if err := x.checkFailsafe(ctx); err != nil {
		return err
	}
	btn, err := buttonNumber(button)
	if err != nil {
		return err
	}
	if count < 1 {
		count = 1
	}
	var args []string
	if p != nil {
		args = append(args, "mousemove", itoa(p.X), itoa(p.Y))
	}
	args = append(args, "click", "--repeat", itoa(count), btn)
	_, err = x.run(ctx, args...)
	return err
}

func (x *XDoTool) Scroll(ctx context.Context, clicks int) error {
	if clicks == 0 {
		return nil
	}
	if err := x.checkFailsafe(ctx); err != nil {
		return err
	}
	btn := "4"
	if clicks < 0 {
		btn = "5"
		clicks = -clicks
	}
	_, err := x.run(ctx, "click", "--repeat", itoa(clicks), "--delay", "1", btn)
	return err
}

func (x *XDoTool) Write(ctx context.Context, text string, interval time.Duration) error {
	delay := itoa(int(interval / time.Millisecond))
	for len(text) > 0 {
		if err := x.checkFailsafe(ctx); err != nil {
			return err
		}
		chunk := text
		if utf8.RuneCountInString(text) > typeChunk {
			n := 0
			for i := range text {
				if n == typeChunk {
					chunk = text[:i]
					break
				}
				n++
			}
		}
		if _, err := x.run(ctx, "type", "--delay", delay, "--", chunk); err != nil {
			return err
		}
		text = text[len(chunk):]
	}
	return nil
}

func (x *XDoTool) Press(ctx context.Context, key string) error {
	if err := x.checkFailsafe(ctx); err != nil {
		return err
	}
	_, err := x.run(ctx, "key", "--", KeySym(key))
	return err
}

func (x *XDoTool) Hotkey(ctx context.Context, keys []string) error {
	if err := x.checkFailsafe(ctx); err != nil {
		return err
	}
	syms := make([]string, 0, len(keys))
	for _, k := range keys {
		syms = append(syms, KeySym(k))
	}
	_, err := x.run(ctx, "key", "--", strings.Join(syms, "+"))
	return err
}

var keySyms = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"space":     "space",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"del":       "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"ctrl":      "ctrl",
	"control":   "ctrl",
	"alt":       "alt",
	"shift":     "shift",
	"win":       "super",
	"cmd":       "super",
	"super":     "super",
}

// KeySym maps a key name to its X keysym. Unknown names pass through.
func KeySym(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if sym, ok := keySyms[k]; ok {
		return sym
	}
	if len(k) >= 2 && k[0] == 'f' {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= 24 {
			return "F" + k[1:]
		}
	}
	return strings.TrimSpace(key)
}

func buttonNumber(button string) (string, error) {
	switch strings.ToLower(button) {
	case "", "left":
		return "1", nil
	case "middle":
		return "2", nil
	case "right":
		return "3", nil
	}
	return "", fmt.Errorf("unsupported button %q", button)
}

func itoa(n int) string { return strconv.Itoa(n) }
