package translate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/llm"
	"github.com/Odwa2003/Phone-Controller/internal/memory"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/prompts"
)

type fakeProvider struct {
	mu      sync.Mutex
	content string
	err     error
	block   bool
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func newAI(t *testing.T, p llm.Provider, opts Options) *AI {
	t.Helper()
	vocab, err := prompts.LoadVocabulary()
	require.NoError(t, err)
	cat := catalog.New("linux")
	return NewAI(p, vocab, cat, NewPattern(cat, zap.NewNop()), opts, zap.NewNop())
}

func TestAITranslateAccepted(t *testing.T) {
	p := &fakeProvider{content: "```json\n[" +
		`{"intent":"open_app","target":"notepad"},` +
		`{"intent":"keyboard_type","text":"hello"},` +
		`{"intent":"system_command","action":"lock"}` +
		"]\n```"}
	ai := newAI(t, p, Options{Identity: "desk"})

	tr := ai.Translate(context.Background(), "open notepad, write hello and lock")
	assert.True(t, tr.AIProcessed)
	assert.Equal(t, "open notepad, write hello and lock", tr.Original)
	require.Len(t, tr.Commands, 3)

	for _, c := range tr.Commands {
		assert.True(t, c.AIProcessed)
		assert.InDelta(t, ConfidenceAI, c.Confidence, 1e-9)
	}
	assert.Equal(t, "notepad", tr.Commands[0].Command.(*models.OpenApp).Target)
	assert.Equal(t, "hello", tr.Commands[1].Command.(*models.TypeText).Text)
	assert.Equal(t, models.ActionLock, tr.Commands[2].Command.(*models.SystemCommand).Action)

	assert.Contains(t, p.lastPrompt(), "Request:\nopen notepad, write hello and lock\n")
}

func TestAITranslateFallsBack(t *testing.T) {
	cases := map[string]*fakeProvider{
		"provider error":      {err: errors.New("503")},
		"empty response":      {err: llm.ErrEmptyResponse},
		"prose only":          {content: "I cannot help with that."},
		"unknown intent":      {content: `[{"intent":"run_shell","command":"rm -rf /"}]`},
		"nested ai command":   {content: `[{"intent":"ai_command","text":"open chrome"}]`},
		"unlisted app":        {content: `[{"intent":"open_app","target":"/bin/sh"}]`},
		"extra field":         {content: `[{"intent":"open_app","target":"chrome","args":["--evil"]}]`},
		"seq smuggled":        {content: `[{"intent":"keyboard_press","key":"enter","seq":7}]`},
		"bad action":          {content: `[{"intent":"system_command","action":"format"}]`},
		"wrong field type":    {content: `[{"intent":"mouse_move","x":"10","y":20}]`},
		"one bad item spoils": {content: `[{"intent":"keyboard_press","key":"enter"},{"intent":"open_app","target":"bash"}]`},
		"too many actions":    {content: `[` + repeat(`{"intent":"keyboard_press","key":"a"}`, maxActions+1) + `]`},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			ai := newAI(t, p, Options{})
			tr := ai.Translate(context.Background(), "open chrome")

			assert.False(t, tr.AIProcessed)
			require.Len(t, tr.Commands, 1)
			got := tr.Commands[0]
			assert.False(t, got.AIProcessed)
			assert.InDelta(t, ConfidenceTable, got.Confidence, 1e-9)
			assert.Equal(t, "chrome", got.Command.(*models.OpenApp).Target)
		})
	}
}

func TestAITranslateTimeout(t *testing.T) {
	p := &fakeProvider{block: true}
	ai := newAI(t, p, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	tr := ai.Translate(context.Background(), "scroll down")
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.False(t, tr.AIProcessed)
	require.Len(t, tr.Commands, 1)
	assert.Equal(t, models.TypeMouseScroll, tr.Commands[0].Command.CommandType())
}

func TestAITranslateResolvesAliases(t *testing.T) {
	p := &fakeProvider{content: `{"commands":[{"intent":"system_command","action":"sleep"},{"intent":"open_app","target":"vscode"}]}`}
	ai := newAI(t, p, Options{})

	tr := ai.Translate(context.Background(), "sleep then code")
	require.True(t, tr.AIProcessed)
	require.Len(t, tr.Commands, 2)
	assert.Equal(t, models.ActionSleep, tr.Commands[0].Command.(*models.SystemCommand).Action)
	assert.Equal(t, "vscode", tr.Commands[1].Command.(*models.OpenApp).Target)
}

func TestAITranslateUsesHistory(t *testing.T) {
	history := memory.NewManager(memory.NewInMemoryStore(10), 10, zap.NewNop())
	p := &fakeProvider{content: `[{"intent":"keyboard_press","key":"enter"}]`}
	ai := newAI(t, p, Options{Identity: "desk", History: history})

	ai.Translate(context.Background(), "hit enter")
	assert.NotContains(t, p.lastPrompt(), "Recent Requests:")

	ai.Translate(context.Background(), "again")
	assert.Contains(t, p.lastPrompt(), "Recent Requests:\nUser: hit enter\nAssistant: {\"type\":\"keyboard_press\",\"key\":\"enter\"}\n")
}

func TestNewChainWithoutProvider(t *testing.T) {
	tr, err := NewChain(nil, catalog.New("linux"), Options{}, zap.NewNop())
	require.NoError(t, err)
	_, ok := tr.(*Pattern)
	assert.True(t, ok)

	tr, err = NewChain(&fakeProvider{}, catalog.New("linux"), Options{}, zap.NewNop())
	require.NoError(t, err)
	_, ok = tr.(*AI)
	assert.True(t, ok)
}

func repeat(item string, n int) string {
	out := item
	for i := 1; i < n; i++ {
		out += "," + item
	}
	return out
}
