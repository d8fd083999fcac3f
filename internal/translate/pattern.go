// Package translate turns free-text utterances into commands.
package translate

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/models"
)

// Translator converts one utterance into an ordered list of commands.
// Implementations never fail; they degrade to a default.
type Translator interface {
	Translate(ctx context.Context, text string) models.Translation
}

// Confidence levels assigned by the pattern rules.
const (
	ConfidenceTable    = 0.9
	ConfidencePattern  = 0.8
	ConfidenceScroll   = 0.7
	ConfidenceFallback = 0.3
)

var injectionChars = regexp.MustCompile("[;&|`$]")

// Sanitize removes shell metacharacters and surrounding space.
func Sanitize(text string) string {
	return strings.TrimSpace(injectionChars.ReplaceAllString(text, ""))
}

var (
	reDoubleClick = regexp.MustCompile(`(?i)\bdouble[\s-]?click\b`)
	reButtonClick = regexp.MustCompile(`(?i)\b(right|middle)[\s-]?click\b|\bclick\s+(left|right|middle)\b`)
	reClick       = regexp.MustCompile(`(?i)\bclick\b`)
	reScroll      = regexp.MustCompile(`(?i)\bscroll\s+(up|down)\b`)
	reMoveTo      = regexp.MustCompile(`(?i)\bmove\s+(?:the\s+)?(?:mouse|cursor|pointer)\s+(?:to\s+)?(-?\d+)\s*[, ]\s*(-?\d+)`)

	reType   = regexp.MustCompile(`(?i)\btype\s+(.+)`)
	rePress  = regexp.MustCompile(`(?i)\bpress\s+(enter|return|space|tab|escape|esc|backspace|delete|up|down|left|right)\b`)
	reHotkey = regexp.MustCompile(`(?i)\b(?:hotkey|shortcut)\s+((?:ctrl|control|alt|shift|win|cmd|super)(?:\s*\+\s*[a-z0-9]+)+)`)
)

var keyAliases = map[string]string{
	"esc":     "escape",
	"return":  "enter",
	"control": "ctrl",
}

type tableRule struct {
	re    *regexp.Regexp
	value string
}

// Pattern is the deterministic translator. It makes no network calls.
type Pattern struct {
	apps    []tableRule
	actions []tableRule
	logger  *zap.Logger
}

func NewPattern(cat *catalog.Catalog, logger *zap.Logger) *Pattern {
	return &Pattern{
		apps:    compileTable(cat.AppAliases()),
		actions: compileTable(cat.ActionAliases()),
		logger:  logger,
	}
}

func compileTable(entries []catalog.Entry) []tableRule {
	rules := make([]tableRule, 0, len(entries))
	for _, e := range entries {
		rules = append(rules, tableRule{
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(e.Alias) + `\b`),
			value: e.Value,
		})
	}
	return rules
}

func (p *Pattern) Translate(_ context.Context, text string) models.Translation {
	clean := Sanitize(text)
	cmd, confidence := p.match(clean)
	p.logger.Debug("Pattern translation",
		zap.String("input", clean),
		zap.String("command", cmd.CommandType()),
		zap.Float64("confidence", confidence))

	return models.Translation{
		Original: text,
		Commands: []models.TranslatedCommand{{Command: cmd, Confidence: confidence}},
	}
}

// match applies the rules in priority order; the first match wins.
func (p *Pattern) match(text string) (models.Command, float64) {
	for _, rule := range p.apps {
		if rule.re.MatchString(text) {
			return &models.OpenApp{Header: models.NewHeader(models.TypeOpenApp), Target: rule.value}, ConfidenceTable
		}
	}

	for _, rule := range p.actions {
		if rule.re.MatchString(text) {
			return &models.SystemCommand{Header: models.NewHeader(models.TypeSystemCommand), Action: rule.value}, ConfidenceTable
		}
	}

	if cmd, confidence, ok := matchMouse(text); ok {
		return cmd, confidence
	}

	if cmd, ok := matchKeyboard(text); ok {
		return cmd, ConfidencePattern
	}

	return &models.TypeText{Header: models.NewHeader(models.TypeKeyboardType), Text: text}, ConfidenceFallback
}

func matchMouse(text string) (models.Command, float64, bool) {
	if reDoubleClick.MatchString(text) {
		return &models.DoubleClick{Header: models.NewHeader(models.TypeMouseDoubleClick)}, ConfidencePattern, true
	}
	if m := reButtonClick.FindStringSubmatch(text); m != nil {
		button := strings.ToLower(m[1] + m[2])
		return &models.Click{Header: models.NewHeader(models.TypeMouseClick), Button: button}, ConfidencePattern, true
	}
	if reClick.MatchString(text) {
		return &models.Click{Header: models.NewHeader(models.TypeMouseClick), Button: models.ButtonLeft}, ConfidencePattern, true
	}
	if m := reScroll.FindStringSubmatch(text); m != nil {
		return &models.Scroll{Header: models.NewHeader(models.TypeMouseScroll), Direction: strings.ToLower(m[1])}, ConfidenceScroll, true
	}
	if m := reMoveTo.FindStringSubmatch(text); m != nil {
		x, errX := strconv.ParseFloat(m[1], 64)
		y, errY := strconv.ParseFloat(m[2], 64)
		if errX == nil && errY == nil {
			return &models.Move{Header: models.NewHeader(models.TypeMouseMove), X: &x, Y: &y}, ConfidencePattern, true
		}
	}
	return nil, 0, false
}

func matchKeyboard(text string) (models.Command, bool) {
	if m := reType.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return &models.TypeText{Header: models.NewHeader(models.TypeKeyboardType), Text: body}, true
		}
	}
	if m := rePress.FindStringSubmatch(text); m != nil {
		return &models.KeyPress{Header: models.NewHeader(models.TypeKeyboardPress), Key: normalizeKey(m[1])}, true
	}
	if m := reHotkey.FindStringSubmatch(text); m != nil {
		parts := strings.Split(m[1], "+")
		keys := make([]string, 0, len(parts))
		for _, part := range parts {
			keys = append(keys, normalizeKey(part))
		}
		return &models.Hotkey{Header: models.NewHeader(models.TypeKeyboardHotkey), Keys: keys}, true
	}
	return nil, false
}

func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}
