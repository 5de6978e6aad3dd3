package steps

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/classify"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

type scriptedGateway struct {
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *scriptedGateway) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func basicRequest() Request {
	return Request{
		Tier:     session.TierBasic,
		Device:   classify.DeviceDesktop,
		Problem:  "won't power on",
		Category: classify.ProblemNoPower,
		Locale:   "es-AR",
	}
}

func TestGenerateFromGateway(t *testing.T) {
	gw := &scriptedGateway{reply: "1. Revisá el cable.\n2) Probá otro enchufe.\n3. Mantené presionado encendido."}
	gen := NewGenerator(gw, nil)

	steps := gen.Generate(context.Background(), basicRequest())
	require.Len(t, steps, 3)
	assert.Equal(t, 1, steps[0].Index)
	assert.Equal(t, "Revisá el cable.", steps[0].Description)
	assert.Equal(t, session.TierBasic, steps[0].Tier)
	assert.Equal(t, session.StepPending, steps[0].Status)
}

func TestGenerateFallsBackOnGatewayError(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("provider down")}
	gen := NewGenerator(gw, nil)

	steps := gen.Generate(context.Background(), basicRequest())
	require.NotEmpty(t, steps, "fallback must never return an empty list")
	for i, s := range steps {
		assert.Equal(t, i+1, s.Index)
		assert.NotEmpty(t, s.Description)
	}
}

func TestGenerateFallsBackOnGarbageReply(t *testing.T) {
	gw := &scriptedGateway{reply: "I'm sorry, I can't help with that."}
	gen := NewGenerator(gw, nil)

	steps := gen.Generate(context.Background(), basicRequest())
	require.NotEmpty(t, steps)
}

func TestGenerateIsIdempotentPerKey(t *testing.T) {
	gw := &scriptedGateway{reply: "1. Paso uno\n2. Paso dos\n3. Paso tres"}
	gen := NewGenerator(gw, nil)
	req := basicRequest()

	first := gen.Generate(context.Background(), req)
	second := gen.Generate(context.Background(), req)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Description, second[i].Description)
	}
	assert.Equal(t, int32(1), gw.calls.Load(), "second request must come from cache")

	// A changed problem (new topic) is a different key and regenerates.
	req.Problem = "no internet"
	req.Category = classify.ProblemNoNetwork
	gen.Generate(context.Background(), req)
	assert.Equal(t, int32(2), gw.calls.Load())
}

func TestGenerateCachedCopyIsIsolated(t *testing.T) {
	gw := &scriptedGateway{reply: "1. Paso uno\n2. Paso dos"}
	gen := NewGenerator(gw, nil)
	req := basicRequest()

	first := gen.Generate(context.Background(), req)
	first[0].Status = session.StepFailed

	second := gen.Generate(context.Background(), req)
	assert.Equal(t, session.StepPending, second[0].Status, "status mutation leaked into the cache")
}

func TestLocalFallbackCoversAllCategories(t *testing.T) {
	categories := []classify.Problem{
		classify.ProblemNoPower, classify.ProblemNoNetwork, classify.ProblemSlow,
		classify.ProblemDisplay, classify.ProblemPeripheral, classify.ProblemOther,
	}
	tiers := []session.Tier{session.TierBasic, session.TierAdvanced}
	locales := []string{"es-AR", "es-ES", "en", "pt-BR" /* unknown falls back to es */}

	for _, c := range categories {
		for _, tier := range tiers {
			for _, loc := range locales {
				steps := localFallback(tier, c, loc)
				assert.NotEmptyf(t, steps, "no fallback for %s/%s/%s", c, tier, loc)
			}
		}
	}
}
