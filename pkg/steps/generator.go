// Package steps produces ordered remediation step lists, AI-generated when
// the gateway is healthy and deterministic otherwise.
package steps

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

// TextGenerator is the slice of the AI gateway the generator needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error)
}

// Request describes one step-list generation.
type Request struct {
	Tier     session.Tier
	Device   classify.Device
	Problem  string // free-text problem description
	Category classify.Problem
	Locale   string
}

// Generator asks the AI gateway for remediation steps and falls back to the
// local lists on any failure. Results are cached by tier/device/problem/locale
// so re-requesting the same tier yields the same list (stability across
// repeated turns); the cache is bypassed only by an explicit topic change,
// which changes the problem text and therefore the key.
type Generator struct {
	gateway TextGenerator
	cache   *cache.Cache
	log     logger.ILogger
}

func NewGenerator(gateway TextGenerator, log logger.ILogger) *Generator {
	return &Generator{
		gateway: gateway,
		cache:   cache.New(1*time.Hour, 10*time.Minute),
		log:     log,
	}
}

// Generate returns an ordered, non-empty step list. It never returns an error
// to the caller: gateway trouble degrades to the deterministic local list.
func (g *Generator) Generate(ctx context.Context, req Request) []session.DiagnosticStep {
	key := cacheKey(req)
	if raw, found := g.cache.Get(key); found {
		return cloneSteps(raw.([]session.DiagnosticStep))
	}

	generated := g.fromGateway(ctx, req)
	if generated == nil {
		generated = localFallback(req.Tier, req.Category, req.Locale)
	}

	g.cache.Set(key, generated, cache.DefaultExpiration)
	return cloneSteps(generated)
}

func (g *Generator) fromGateway(ctx context.Context, req Request) []session.DiagnosticStep {
	if g.gateway == nil {
		return nil
	}

	reply, err := g.gateway.Generate(ctx, buildPrompt(req), llm.WithTemperature(0.3), llm.WithMaxTokens(400))
	if err != nil {
		// Already logged by the gateway; the fallback keeps the turn alive.
		return nil
	}

	texts := parseNumberedList(reply)
	if len(texts) < 2 {
		if g.log != nil {
			g.log.Warn("StepGenerator", "Unparseable AI reply, using local fallback", map[string]interface{}{
				"tier":   string(req.Tier),
				"device": string(req.Device),
			})
		}
		return nil
	}
	return buildSteps(req.Tier, texts)
}

func buildPrompt(req Request) string {
	lang := "Spanish (Argentina)"
	if strings.HasPrefix(strings.ToLower(req.Locale), "en") {
		lang = "English"
	} else if strings.HasPrefix(strings.ToLower(req.Locale), "es-es") {
		lang = "Spanish (Spain)"
	}

	level := "basic, safe steps any non-technical user can follow"
	if req.Tier == session.TierAdvanced {
		level = "more advanced steps for a user who already tried the basics"
	}

	device := string(req.Device)
	if device == "" {
		device = "computer"
	}

	return fmt.Sprintf(
		"You are a technical support assistant. A user has a problem with their %s: %q.\n"+
			"Write %s to diagnose and fix it.\n"+
			"Answer in %s, as a numbered list of 3 to 5 steps, one line each, no preamble.",
		device, req.Problem, level, lang,
	)
}

var numberedLine = regexp.MustCompile(`^\s*\d+[\.\)]\s*(.+)$`)

func parseNumberedList(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[1])
			if text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func cacheKey(req Request) string {
	return strings.Join([]string{
		string(req.Tier),
		string(req.Device),
		string(req.Category),
		strings.ToLower(strings.TrimSpace(req.Problem)),
		strings.ToLower(req.Locale),
	}, "|")
}

// cloneSteps hands each caller its own slice so per-session status mutation
// never leaks into the cache.
func cloneSteps(steps []session.DiagnosticStep) []session.DiagnosticStep {
	out := make([]session.DiagnosticStep, len(steps))
	copy(out, steps)
	return out
}
