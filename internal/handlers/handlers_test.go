package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/registry"
)

var testBounds = backend.Bounds{Width: 1920, Height: 1080}

func setup(t *testing.T) (*registry.Registry, *backend.Recorder) {
	t.Helper()
	rec := backend.NewRecorder(testBounds)
	h := New(Deps{
		Input:                rec,
		Launcher:             rec,
		Catalog:              catalog.New("linux"),
		Bounds:               testBounds,
		SystemCommandTimeout: 50 * time.Millisecond,
		Logger:               zap.NewNop(),
	})
	reg := registry.New()
	require.NoError(t, h.Register(reg))
	return reg, rec
}

func run(t *testing.T, reg *registry.Registry, raw string) (*models.Envelope, error) {
	t.Helper()
	cmd, err := models.DecodeCommand([]byte(raw))
	require.NoError(t, err)
	handler, err := reg.Resolve(cmd.CommandType())
	require.NoError(t, err)
	return handler(context.Background(), cmd)
}

func calls(rec *backend.Recorder) []string {
	var out []string
	for _, c := range rec.Calls() {
		out = append(out, c.String())
	}
	return out
}

func TestRegisterCoversEveryCommandButAI(t *testing.T) {
	reg, _ := setup(t)
	for _, name := range []string{
		models.TypeClick, models.TypeMouseClick, models.TypeDoubleClick, models.TypeMouseDoubleClick,
		models.TypeMove, models.TypeMouseMove, models.TypeType, models.TypeKeyboardType,
		models.TypeScroll, models.TypeMouseScroll, models.TypeKey, models.TypeKeyboardPress,
		models.TypePressKey, models.TypeHotkey, models.TypeKeyboardHotkey, models.TypeOpenApp,
		models.TypeLaunchApp, models.TypeNavigateURL, models.TypeSystemCommand,
	} {
		_, err := reg.Resolve(name)
		assert.NoError(t, err, name)
	}
	_, err := reg.Resolve(models.TypeAICommand)
	assert.ErrorIs(t, err, registry.ErrHandlerNotFound)

	// A second registration collides.
	h := New(Deps{Catalog: catalog.New("linux"), Logger: zap.NewNop()})
	assert.ErrorIs(t, h.Register(reg), registry.ErrDuplicateHandler)
}

func TestMoveToPoint(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"move","x":100,"y":100,"duration":0.2}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, []string{"move(100, 100, 200ms)"}, calls(rec))
}

func TestClickAtCurrentPosition(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"click"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, []string{"click(current, left, 1)"}, calls(rec))
}

func TestCoordinatesAreClamped(t *testing.T) {
	reg, rec := setup(t)

	for _, raw := range []string{
		`{"type":"click","x":-50,"y":99999,"button":"right"}`,
		`{"type":"mouse_move","x":5000,"y":-1}`,
		`{"type":"double_click","x":1919.6,"y":10.2}`,
	} {
		env, err := run(t, reg, raw)
		require.NoError(t, err, raw)
		assert.True(t, env.OK, raw)
	}
	assert.Equal(t, []string{
		"click(0, 1079, right, 1)",
		"move(1919, 0, 100ms)",
		"click(1919, 10, left, 2)",
	}, calls(rec))
}

func TestClickIsIdempotent(t *testing.T) {
	reg, rec := setup(t)

	first, err := run(t, reg, `{"type":"click","x":10,"y":20}`)
	require.NoError(t, err)
	second, err := run(t, reg, `{"type":"click","x":10,"y":20}`)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"click(10, 20, left, 1)", "click(10, 20, left, 1)"}, calls(rec))
}

func TestKeyboard(t *testing.T) {
	reg, rec := setup(t)

	for _, raw := range []string{
		`{"type":"type","text":"hello"}`,
		`{"type":"keyboard_type","text":"hi","interval":0}`,
		`{"type":"press_key","key":"Esc"}`,
		`{"type":"key","key":"enter"}`,
		`{"type":"hotkey","keys":["Control","c"]}`,
	} {
		env, err := run(t, reg, raw)
		require.NoError(t, err, raw)
		assert.True(t, env.OK, raw)
	}
	assert.Equal(t, []string{
		"write(hello, 50ms)",
		"write(hi, 0s)",
		"press(escape)",
		"press(enter)",
		"hotkey(ctrl+c)",
	}, calls(rec))
}

func TestScrollDefaults(t *testing.T) {
	reg, rec := setup(t)

	for _, raw := range []string{
		`{"type":"scroll"}`,
		`{"type":"scroll","direction":"up"}`,
		`{"type":"mouse_scroll","clicks":-3}`,
	} {
		_, err := run(t, reg, raw)
		require.NoError(t, err, raw)
	}
	assert.Equal(t, []string{"scroll(-100)", "scroll(100)", "scroll(-3)"}, calls(rec))
}

func TestBackendErrorsPropagate(t *testing.T) {
	reg, rec := setup(t)
	rec.Hook = func(context.Context, string) error { return backend.ErrAborted }

	_, err := run(t, reg, `{"type":"click"}`)
	assert.ErrorIs(t, err, backend.ErrAborted)
}

func TestOpenApp(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"open_app","target":"Google Chrome"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "Launched chrome", env.Message)

	env, err = run(t, reg, `{"type":"open_app","target":"/bin/sh -c reboot"}`)
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Equal(t, "Application not approved", env.Error)

	assert.Equal(t, []string{"start(google-chrome)"}, calls(rec))
}

func TestLaunchAppByExecutable(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"launch_app","app":"google-chrome"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "Launched chrome", env.Message)

	env, err = run(t, reg, `{"type":"launch_app","app":"rm"}`)
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Equal(t, "Application not approved", env.Error)

	assert.Equal(t, []string{"start(google-chrome)"}, calls(rec))
}

func TestNavigateURL(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"navigate_url","target":"example.com/docs"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "Opened https://example.com/docs", env.Message)

	for _, bad := range []string{"file:///etc/passwd", "javascript:alert(1)", "ftp://example.com", "https://"} {
		env, err := run(t, reg, `{"type":"navigate_url","target":"`+bad+`"}`)
		require.NoError(t, err, bad)
		assert.False(t, env.OK, bad)
		assert.Equal(t, "Invalid URL", env.Error, bad)
	}

	assert.Equal(t, []string{"start(xdg-open https://example.com/docs)"}, calls(rec))
}

func TestSystemCommand(t *testing.T) {
	reg, rec := setup(t)

	env, err := run(t, reg, `{"type":"system_command","action":"lock"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "Command executed", env.Message)
	assert.Equal(t, []string{"run(loginctl lock-session)"}, calls(rec))

	_, err = models.DecodeCommand([]byte(`{"type":"system_command","action":"launch_arbitrary_binary"}`))
	require.Error(t, err)
	assert.Equal(t, "Unknown system action: launch_arbitrary_binary", err.Error())
}

func TestSystemCommandTimeoutIsInitiated(t *testing.T) {
	reg, rec := setup(t)
	rec.Hook = func(ctx context.Context, op string) error {
		if op != "run" {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}

	env, err := run(t, reg, `{"type":"system_command","action":"shutdown"}`)
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Equal(t, "Command initiated", env.Message)
}

func TestSystemCommandFailure(t *testing.T) {
	reg, rec := setup(t)
	rec.Hook = func(context.Context, string) error { return errors.New("exit status 1") }

	env, err := run(t, reg, `{"type":"system_command","action":"sleep"}`)
	require.NoError(t, err)
	assert.False(t, env.OK)
	assert.Equal(t, "Command failed", env.Error)
}
