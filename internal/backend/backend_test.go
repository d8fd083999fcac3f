package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeXDo struct {
	pos   string
	calls []string
}

func (f *fakeXDo) run(_ context.Context, args ...string) ([]byte, error) {
	switch args[0] {
	case "getdisplaygeometry":
		return []byte("1920 1080\n"), nil
	case "getmouselocation":
		return []byte(f.pos), nil
	}
	f.calls = append(f.calls, strings.Join(args, " "))
	return nil, nil
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Width: 1920, Height: 1080}
	assert.Equal(t, Point{X: 0, Y: 0}, b.Clamp(Point{X: -50, Y: -1}))
	assert.Equal(t, Point{X: 1919, Y: 1079}, b.Clamp(Point{X: 5000, Y: 99999}))
	assert.Equal(t, Point{X: 100, Y: 200}, b.Clamp(Point{X: 100, Y: 200}))
}

func TestXDoToolSizeAndPosition(t *testing.T) {
	f := &fakeXDo{pos: "X=640\nY=480\nSCREEN=0\nWINDOW=1234\n"}
	x := NewXDoTool(f.run, true, zap.NewNop())

	b, err := x.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Bounds{Width: 1920, Height: 1080}, b)

	p, err := x.Position(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Point{X: 640, Y: 480}, p)
}

func TestXDoToolFailsafeAborts(t *testing.T) {
	f := &fakeXDo{pos: "X=0\nY=0\n"}
	x := NewXDoTool(f.run, true, zap.NewNop())

	err := x.Click(context.Background(), nil, "left", 1)
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, f.calls)

	off := NewXDoTool(f.run, false, zap.NewNop())
	require.NoError(t, off.Click(context.Background(), nil, "left", 1))
	assert.Equal(t, []string{"click --repeat 1 1"}, f.calls)
}

func TestXDoToolCommands(t *testing.T) {
	f := &fakeXDo{pos: "X=10\nY=10\n"}
	x := NewXDoTool(f.run, true, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, x.Click(ctx, &Point{X: 5, Y: 6}, "right", 2))
	require.NoError(t, x.Scroll(ctx, -3))
	require.NoError(t, x.Press(ctx, "esc"))
	require.NoError(t, x.Hotkey(ctx, []string{"ctrl", "shift", "t"}))
	require.NoError(t, x.MoveTo(ctx, Point{X: 100, Y: 100}, 0))

	assert.Equal(t, []string{
		"mousemove 5 6 click --repeat 2 3",
		"click --repeat 3 --delay 1 5",
		"key -- Escape",
		"key -- ctrl+shift+t",
		"mousemove 100 100",
	}, f.calls)
}

func TestXDoToolWriteChunks(t *testing.T) {
	f := &fakeXDo{pos: "X=10\nY=10\n"}
	x := NewXDoTool(f.run, true, zap.NewNop())

	require.NoError(t, x.Write(context.Background(), "hello, wörld!", 50*time.Millisecond))
	assert.Equal(t, []string{
		"type --delay 50 -- hello, w",
		"type --delay 50 -- örld!",
	}, f.calls)
}

func TestKeySym(t *testing.T) {
	assert.Equal(t, "Return", KeySym("Enter"))
	assert.Equal(t, "F5", KeySym("f5"))
	assert.Equal(t, "super", KeySym("win"))
	assert.Equal(t, "a", KeySym("a"))
}

func TestRecorderHook(t *testing.T) {
	r := NewRecorder(Bounds{Width: 800, Height: 600})
	r.Hook = func(_ context.Context, op string) error {
		if op == "press" {
			return ErrAborted
		}
		return nil
	}
	ctx := context.Background()
	require.NoError(t, r.Write(ctx, "hi", 0))
	require.ErrorIs(t, r.Press(ctx, "enter"), ErrAborted)
	require.Len(t, r.Calls(), 1)
	assert.Equal(t, "write(hi, 0s)", r.Calls()[0].String())
}
