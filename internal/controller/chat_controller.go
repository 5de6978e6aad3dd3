package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/serverutils"
	"github.com/stirosario/sti-ai-chat-sub006/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Greeting(ctx *fiber.Ctx) error
	Message(ctx *fiber.Ctx) error
	Transcript(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

// Chat routes are anonymous: the session id issued by the greeting is the only
// credential an end user carries.
func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get("greeting", c.Greeting)
	h.Post("message", c.Message)
	h.Get(":id/transcript", c.Transcript)
}

func (c *chatController) Greeting(ctx *fiber.Ctx) error {
	res, err := c.chatService.Greeting(ctx.Context(), ctx.IP())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start conversation", res))
}

func (c *chatController) Message(ctx *fiber.Ctx) error {
	var req dto.ChatMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Text == "" && req.ButtonId == "" && req.Analysis == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Either text, buttonId or analysis is required")
	}

	res, err := c.chatService.Message(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process message", res))
}

func (c *chatController) Transcript(ctx *fiber.Ctx) error {
	res, err := c.chatService.Transcript(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}
