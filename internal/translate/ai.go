package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/catalog"
	"github.com/Odwa2003/Phone-Controller/internal/llm"
	"github.com/Odwa2003/Phone-Controller/internal/memory"
	"github.com/Odwa2003/Phone-Controller/internal/models"
	"github.com/Odwa2003/Phone-Controller/internal/prompts"
)

// ConfidenceAI is assigned to every command accepted from the model.
const ConfidenceAI = 0.95

// maxActions caps how many commands one utterance may expand into.
const maxActions = 10

// Options configures the probabilistic translator.
type Options struct {
	Identity string        // history key
	Timeout  time.Duration // bound on one model call
	History  *memory.Manager
}

// AI asks a language model for commands and validates every item against
// the intent vocabulary and the catalog. Any failure yields the fallback
// translator's result instead.
type AI struct {
	provider llm.Provider
	vocab    *prompts.Vocabulary
	sets     prompts.Sets
	catalog  *catalog.Catalog
	fallback Translator
	opts     Options
	logger   *zap.Logger
}

func NewAI(provider llm.Provider, vocab *prompts.Vocabulary, cat *catalog.Catalog, fallback Translator, opts Options, logger *zap.Logger) *AI {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &AI{
		provider: provider,
		vocab:    vocab,
		sets:     prompts.Sets{"apps": cat.AppIDs()},
		catalog:  cat,
		fallback: fallback,
		opts:     opts,
		logger:   logger,
	}
}

// NewChain builds the translator used for ai_command frames. With no
// provider configured it is the pattern translator alone.
func NewChain(provider llm.Provider, cat *catalog.Catalog, opts Options, logger *zap.Logger) (Translator, error) {
	pattern := NewPattern(cat, logger.Named("pattern"))
	if provider == nil {
		return pattern, nil
	}

	vocab, err := prompts.LoadVocabulary()
	if err != nil {
		return nil, err
	}
	return NewAI(provider, vocab, cat, pattern, opts, logger.Named("ai")), nil
}

func (a *AI) Translate(ctx context.Context, text string) models.Translation {
	start := time.Now()

	commands, err := a.complete(ctx, text)
	if err != nil {
		a.logger.Warn("Model translation rejected, using pattern rules",
			zap.String("provider", a.provider.Name()),
			zap.Error(err))
		return a.fallback.Translate(ctx, text)
	}

	a.logger.Info("Model translation accepted",
		zap.String("provider", a.provider.Name()),
		zap.Int("commands", len(commands)),
		zap.Duration("duration", time.Since(start)))

	a.remember(ctx, text, commands)

	return models.Translation{
		Original:    text,
		Commands:    commands,
		AIProcessed: true,
	}
}

func (a *AI) complete(ctx context.Context, text string) ([]models.TranslatedCommand, error) {
	var history string
	if a.opts.History != nil {
		h, err := a.opts.History.FormattedHistory(ctx, a.opts.Identity)
		if err != nil {
			a.logger.Debug("History unavailable", zap.Error(err))
		}
		history = h
	}

	prompt := prompts.BuildTranslatePrompt(a.vocab, a.sets, history, text)

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	resp, err := a.provider.Complete(ctx, &llm.Request{
		Prompt:      prompt,
		MaxTokens:   a.vocab.Style.MaxTokens,
		Temperature: a.vocab.Style.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	items, err := prompts.ParseLLMResponse(resp.Content)
	if err != nil {
		return nil, err
	}
	if len(items) > maxActions {
		return nil, fmt.Errorf("response has %d actions, limit is %d", len(items), maxActions)
	}

	out := make([]models.TranslatedCommand, 0, len(items))
	for i, item := range items {
		cmd, err := a.toCommand(item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, models.TranslatedCommand{
			Command:     cmd,
			Confidence:  ConfidenceAI,
			AIProcessed: true,
		})
	}
	return out, nil
}

// toCommand turns one model item into a strictly decoded command.
func (a *AI) toCommand(item map[string]any) (models.Command, error) {
	name, _ := item["intent"].(string)
	in, ok := a.vocab.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown intent %q", name)
	}

	args := make(map[string]any, len(item))
	for k, v := range item {
		if k != "intent" {
			args[k] = v
		}
	}
	if err := in.Check(args, a.sets); err != nil {
		return nil, err
	}

	switch name {
	case models.TypeOpenApp:
		id, ok := a.catalog.ResolveApp(args["target"].(string))
		if !ok {
			return nil, fmt.Errorf("application %v is not approved", args["target"])
		}
		args["target"] = id
	case models.TypeSystemCommand:
		action, ok := a.catalog.ResolveAction(args["action"].(string))
		if !ok {
			return nil, fmt.Errorf("system action %v is not approved", args["action"])
		}
		args["action"] = action
	}

	args["type"] = name
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return models.DecodeCommand(raw)
}

func (a *AI) remember(ctx context.Context, text string, commands []models.TranslatedCommand) {
	if a.opts.History == nil {
		return
	}
	if err := a.opts.History.RecordExchange(ctx, a.opts.Identity, text, Summarize(commands)); err != nil {
		a.logger.Warn("Failed to record history", zap.Error(err))
	}
}

// Summarize renders commands in wire form, comma separated.
func Summarize(commands []models.TranslatedCommand) string {
	parts := make([]string, 0, len(commands))
	for _, c := range commands {
		data, err := models.EncodeCommand(c.Command)
		if err != nil {
			parts = append(parts, c.Command.CommandType())
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, ", ")
}
