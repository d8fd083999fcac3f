// Package backend holds the capabilities handlers act through: pointer and
// keyboard input, and launching approved programs.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrAborted is returned when the operator triggers the failsafe gesture.
var ErrAborted = errors.New("aborted by operator")

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds is the size of the controllable screen area.
type Bounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clamp saturates p into the bounds.
func (b Bounds) Clamp(p Point) Point {
	return Point{X: clamp(p.X, 0, b.Width-1), Y: clamp(p.Y, 0, b.Height-1)}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Input simulates pointer and keyboard events.
type Input interface {
	Size(ctx context.Context) (Bounds, error)
	Position(ctx context.Context) (Point, error)
	MoveTo(ctx context.Context, p Point, duration time.Duration) error
	// Click clicks count times at p, or at the current position when p is nil.
	Click(ctx context.Context, p *Point, button string, count int) error
	Scroll(ctx context.Context, clicks int) error
	Write(ctx context.Context, text string, interval time.Duration) error
	Press(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys []string) error
}

// Launcher starts programs. Argument vectors come from the approved catalog only.
type Launcher interface {
	// Start launches argv detached and returns once the process is running.
	Start(ctx context.Context, argv []string) error
	// Run executes argv and waits for it to exit or ctx to end.
	Run(ctx context.Context, argv []string) error
}
