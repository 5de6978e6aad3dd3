package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/stirosario/sti-ai-chat-sub006/pkg/flow"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/guard"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm/gateway"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
)

// ErrorHandlerMiddleware translates domain errors into HTTP statuses so
// controllers can just return them. Admission errors carry their own
// semantics: throttling gets a Retry-After header, capacity and busy get
// statuses a client can distinguish and back off on.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var throttled *guard.ThrottledError
		if errors.As(err, &throttled) {
			ctx.Set("Retry-After", fmt.Sprintf("%d", int(throttled.RetryAfter.Seconds())+1))
			return ctx.Status(fiber.StatusTooManyRequests).
				JSON(ErrorResponse("Too many messages, slow down"))
		}

		switch {
		case errors.Is(err, guard.ErrCapacity):
			return ctx.Status(fiber.StatusServiceUnavailable).
				JSON(ErrorResponse("Service is at capacity, try again shortly"))
		case errors.Is(err, session.ErrBusy):
			return ctx.Status(fiber.StatusConflict).
				JSON(ErrorResponse("Previous message is still being processed"))
		case errors.Is(err, session.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).
				JSON(ErrorResponse("Session not found or expired"))
		case errors.Is(err, flow.ErrInvalidTransition):
			return ctx.Status(fiber.StatusUnprocessableEntity).
				JSON(ErrorResponse("That action is not available right now"))
		case errors.Is(err, gateway.ErrCircuitOpen):
			// Should not leak this far (the step generator degrades), but if
			// it does the client gets an honest 503.
			return ctx.Status(fiber.StatusServiceUnavailable).
				JSON(ErrorResponse("Assistant temporarily unavailable"))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse("Internal server error"))
	}
}
