// Package gateway wraps an LLM provider with a per-call timeout and a circuit
// breaker so provider degradation never cascades into turn handling.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm"
)

// Gateway is the only path through which the rest of the system talks to the
// AI provider. Callers that receive an error are expected to fall back to
// deterministic local content; gateway errors never reach end users.
type Gateway struct {
	provider llm.LLMProvider
	breaker  *CircuitBreaker
	timeout  time.Duration
	log      logger.ILogger
}

func New(provider llm.LLMProvider, timeout time.Duration, breaker *CircuitBreaker, log logger.ILogger) *Gateway {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Gateway{
		provider: provider,
		breaker:  breaker,
		timeout:  timeout,
		log:      log,
	}
}

// Generate runs a single prompt through the provider under the breaker and
// timeout. When the deadline hits, the call is abandoned from the caller's
// perspective, but the underlying HTTP request may keep consuming provider
// resources until the provider notices the cancellation. That is a known leak
// and is logged, not hidden.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reply string
	err := g.breaker.Call(func() error {
		var callErr error
		reply, callErr = g.provider.Generate(callCtx, prompt, opts...)
		return callErr
	})
	if err != nil {
		g.logFailure(callCtx, err)
		return "", err
	}
	return reply, nil
}

// Chat is the history-carrying variant of Generate.
func (g *Gateway) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reply string
	err := g.breaker.Call(func() error {
		var callErr error
		reply, callErr = g.provider.Chat(callCtx, history, opts...)
		return callErr
	})
	if err != nil {
		g.logFailure(callCtx, err)
		return "", err
	}
	return reply, nil
}

// BreakerState exposes the breaker state for health reporting.
func (g *Gateway) BreakerState() string {
	return g.breaker.State()
}

func (g *Gateway) logFailure(ctx context.Context, err error) {
	if g.log == nil {
		return
	}
	details := map[string]interface{}{
		"error":         err.Error(),
		"breaker_state": g.breaker.State(),
	}
	if errors.Is(err, ErrCircuitOpen) {
		g.log.Warn("AIGateway", "Call short-circuited, breaker open", details)
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// The provider-side request is not guaranteed to stop; record the
		// possible resource leak for operations.
		g.log.Warn("AIGateway", "Call abandoned on timeout, provider request may still be running", details)
		return
	}
	g.log.Warn("AIGateway", "Provider call failed", details)
}
