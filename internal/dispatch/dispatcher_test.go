package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/backend"
	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/handlers"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/registry"
	"github.com/Odwa2003/Phone-Controller/internal/translate"
)

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (l *eventLog) Publish(e models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) Close() error { return nil }

type controlLog struct {
	frames []models.Frame
	reply  *models.Envelope
}

func (c *controlLog) HandleControl(_ context.Context, frame models.Frame) *models.Envelope {
	c.frames = append(c.frames, frame)
	return c.reply
}

type fixture struct {
	d      *Dispatcher
	rec    *backend.Recorder
	events *eventLog
	pauses []time.Duration
}

func newFixture(t *testing.T, tr translate.Translator) *fixture {
	t.Helper()
	bounds := backend.Bounds{Width: 1920, Height: 1080}
	rec := backend.NewRecorder(bounds)
	cat := catalog.New("linux")

	reg := registry.New()
	h := handlers.New(handlers.Deps{
		Input:    rec,
		Launcher: rec,
		Catalog:  cat,
		Bounds:   bounds,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, h.Register(reg))

	if tr == nil {
		tr = translate.NewPattern(cat, zap.NewNop())
	}

	f := &fixture{rec: rec, events: &eventLog{}}
	f.d = New(reg, tr, f.events, Options{
		Identity:       "desk",
		CommandPause:   300 * time.Millisecond,
		HandlerTimeout: time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			f.pauses = append(f.pauses, d)
			return nil
		},
	}, zap.NewNop())
	return f
}

func (f *fixture) dispatch(raw string) *models.Envelope {
	return f.d.Dispatch(context.Background(), []byte(raw), nil)
}

func TestDispatchMalformedJSON(t *testing.T) {
	f := newFixture(t, nil)

	for _, raw := range []string{"", "{", "not json", `{"type":"click"`, `{"type":}`, "\x00"} {
		env := f.dispatch(raw)
		require.NotNil(t, env, raw)
		assert.False(t, env.OK, raw)
		assert.Equal(t, models.ErrMsgInvalidJSON, env.Error, raw)
	}
	assert.Empty(t, f.rec.Calls())
}

func TestDispatchNonObject(t *testing.T) {
	f := newFixture(t, nil)

	for _, raw := range []string{`[]`, `"click"`, `42`, `null`, `true`} {
		env := f.dispatch(raw)
		assert.Equal(t, models.ErrMsgNotObject, env.Error, raw)
	}
	assert.Empty(t, f.rec.Calls())
}

func TestDispatchUnknownType(t *testing.T) {
	f := newFixture(t, nil)

	env := f.dispatch(`{"type":"format_disk"}`)
	assert.False(t, env.OK)
	assert.Equal(t, "Unknown command type: format_disk", env.Error)

	env = f.dispatch(`{"x":1}`)
	assert.Equal(t, "Unknown command type: ", env.Error)
}

func TestDispatchMove(t *testing.T) {
	f := newFixture(t, nil)

	env := f.dispatch(`{"type":"move","x":100,"y":100,"duration":0.2}`)
	assert.Equal(t, &models.Envelope{OK: true}, env)
	assert.Equal(t, "move(100, 100, 200ms)", f.rec.Calls()[0].String())
}

func TestDispatchEchoesSeq(t *testing.T) {
	f := newFixture(t, nil)

	env := f.dispatch(`{"type":"click","seq":41}`)
	assert.True(t, env.OK)
	assert.Equal(t, uint64(41), env.Seq)

	env = f.dispatch(`{"type":"nope","seq":42}`)
	assert.Equal(t, uint64(42), env.Seq)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t, nil)

	cases := map[string]string{
		`{"type":"system_command","action":"launch_arbitrary_binary"}`: "Unknown system action: launch_arbitrary_binary",
		`{"type":"type","text":""}`:                                    models.ErrMsgNoText,
		`{"type":"ai_command","text":"  "}`:                            models.ErrMsgNoText,
		`{"type":"ai_command"}`:                                        models.ErrMsgNoText,
	}
	for raw, want := range cases {
		env := f.dispatch(raw)
		assert.False(t, env.OK, raw)
		assert.Equal(t, want, env.Error, raw)
	}

	env := f.dispatch(`{"type":"click","cmd":"rm -rf /"}`)
	assert.False(t, env.OK)
	assert.Contains(t, env.Error, "Invalid click payload")

	assert.Empty(t, f.rec.Calls())
}

func TestDispatchAIWithPatternOnly(t *testing.T) {
	f := newFixture(t, nil)

	env := f.dispatch(`{"type":"ai_command","text":"open chrome"}`)
	require.True(t, env.OK)
	require.Len(t, env.Results, 1)
	assert.True(t, env.Results[0].OK)
	require.NotNil(t, env.CommandCount)
	assert.Equal(t, 1, *env.CommandCount)
	assert.Equal(t, "open chrome", env.OriginalText)
	require.NotNil(t, env.AIProcessed)
	assert.False(t, *env.AIProcessed)

	require.Len(t, env.AICommands, 1)
	assert.Equal(t, "chrome", env.AICommands[0].Command.(*models.OpenApp).Target)
	assert.Equal(t, []string{"start(google-chrome)"}, []string{f.rec.Calls()[0].String()})

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"command_count":1`)
	assert.Contains(t, string(data), `"ai_commands":[{"command":{"type":"open_app","target":"chrome"}`)
}

type fixedTranslator struct{ tr models.Translation }

func (f fixedTranslator) Translate(_ context.Context, text string) models.Translation {
	out := f.tr
	out.Original = text
	return out
}

func translated(cmds ...models.Command) fixedTranslator {
	tr := models.Translation{AIProcessed: true}
	for _, c := range cmds {
		tr.Commands = append(tr.Commands, models.TranslatedCommand{Command: c, Confidence: 0.95, AIProcessed: true})
	}
	return fixedTranslator{tr: tr}
}

func TestDispatchAIAggregateIsAND(t *testing.T) {
	f := newFixture(t, translated(
		&models.OpenApp{Header: models.NewHeader(models.TypeOpenApp), Target: "notepad"},
		&models.TypeText{Header: models.NewHeader(models.TypeKeyboardType), Text: "hello"},
		&models.OpenApp{Header: models.NewHeader(models.TypeOpenApp), Target: "regedit"},
	))

	env := f.dispatch(`{"type":"ai_command","text":"do things","seq":3}`)
	assert.False(t, env.OK)
	assert.Equal(t, uint64(3), env.Seq)
	require.Len(t, env.Results, 3)
	assert.True(t, env.Results[0].OK)
	assert.True(t, env.Results[1].OK)
	assert.False(t, env.Results[2].OK)
	assert.Equal(t, models.TypeKeyboardType, env.Results[1].Command)
	assert.True(t, *env.AIProcessed)

	// Sub-commands run in order with a pause between each pair.
	assert.Equal(t, []string{"start(gedit)", "write(hello, 50ms)"}, []string{f.rec.Calls()[0].String(), f.rec.Calls()[1].String()})
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond}, f.pauses)

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 3)
	assert.InDelta(t, 0.95, f.events.events[0].Confidence, 1e-9)
	assert.True(t, f.events.events[0].AIProcessed)
}

func TestDispatchAIRejectsNestedCommands(t *testing.T) {
	f := newFixture(t, translated(
		&models.AICommand{Header: models.NewHeader(models.TypeAICommand), Text: "again"},
	))

	env := f.dispatch(`{"type":"ai_command","text":"loop"}`)
	assert.False(t, env.OK)
	require.Len(t, env.Results, 1)
	assert.Equal(t, "Unknown command type: ai_command", env.Results[0].Error)
}

func TestDispatchFailsafe(t *testing.T) {
	f := newFixture(t, translated(
		&models.Click{Header: models.NewHeader(models.TypeMouseClick)},
		&models.TypeText{Header: models.NewHeader(models.TypeKeyboardType), Text: "never"},
	))
	f.rec.Hook = func(context.Context, string) error { return backend.ErrAborted }

	env := f.dispatch(`{"type":"click","x":5,"y":5}`)
	assert.Equal(t, &models.Envelope{OK: false, Error: models.ErrMsgFailsafe}, env)

	env = f.dispatch(`{"type":"ai_command","text":"click then type"}`)
	assert.False(t, env.OK)
	require.Len(t, env.Results, 1, "remaining commands are skipped after the failsafe")
	assert.Equal(t, models.ErrMsgFailsafe, env.Results[0].Error)
	assert.Equal(t, 2, *env.CommandCount)
}

func TestDispatchRecoversPanics(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(models.TypeClick, func(context.Context, models.Command) (*models.Envelope, error) {
		panic("boom")
	})
	d := New(reg, nil, nil, Options{}, zap.NewNop())

	env := d.Dispatch(context.Background(), []byte(`{"type":"click"}`), nil)
	assert.False(t, env.OK)
	assert.Equal(t, "Handler error: boom", env.Error)

	// The dispatcher is still usable.
	env = d.Dispatch(context.Background(), []byte(`{"type":"click"}`), nil)
	assert.False(t, env.OK)
}

func TestDispatchHandlerTimeout(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(models.TypeClick, func(ctx context.Context, _ models.Command) (*models.Envelope, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := New(reg, nil, nil, Options{HandlerTimeout: 20 * time.Millisecond}, zap.NewNop())

	env := d.Dispatch(context.Background(), []byte(`{"type":"click"}`), nil)
	assert.Equal(t, "Command timed out", env.Error)
}

func TestDispatchReservedFrames(t *testing.T) {
	f := newFixture(t, nil)
	ok := true
	control := &controlLog{reply: &models.Envelope{OK: true, Type: models.FrameAuthResponse, Auth: &ok}}

	env := f.d.Dispatch(context.Background(), []byte(`{"type":"auth","token":"t"}`), control)
	assert.Equal(t, models.FrameAuthResponse, env.Type)

	control.reply = nil
	for _, raw := range []string{
		`{"type":"relay_status","phone_connected":true}`,
		`{"type":"partner_connected"}`,
		`{"type":"partner_disconnected"}`,
		`{"type":"error","message":"pair not found"}`,
	} {
		assert.Nil(t, f.d.Dispatch(context.Background(), []byte(raw), control), raw)
	}
	require.Len(t, control.frames, 5)
	assert.Equal(t, models.FrameRelayStatus, control.frames[1].Type)
	assert.JSONEq(t, `{"type":"relay_status","phone_connected":true}`, string(control.frames[1].Raw))

	// Without a control handler reserved frames are dropped.
	assert.Nil(t, f.dispatch(`{"type":"partner_connected"}`))
	assert.Empty(t, f.rec.Calls())
}

func TestDispatchIsSerialized(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	reg := registry.New()
	reg.MustRegister(models.TypeClick, func(context.Context, models.Command) (*models.Envelope, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return models.OK(""), nil
	})
	d := New(reg, nil, nil, Options{}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), []byte(`{"type":"click"}`), nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
