package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stirosario/sti-ai-chat-sub006/internal/dto"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/serverutils"
	"github.com/stirosario/sti-ai-chat-sub006/internal/service"
)

type ITicketController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
}

type ticketController struct {
	ticketService service.ITicketService
}

func NewTicketController(ticketService service.ITicketService) ITicketController {
	return &ticketController{
		ticketService: ticketService,
	}
}

func (c *ticketController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ticket/v1")
	h.Use(serverutils.JwtMiddleware) // technician dashboard only
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Patch(":id/close", c.Close)
}

func (c *ticketController) List(ctx *fiber.Ctx) error {
	var req dto.ListTicketsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ticketService.List(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list tickets", res))
}

func (c *ticketController) Show(ctx *fiber.Ctx) error {
	res, err := c.ticketService.Show(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Ticket not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show ticket", res))
}

func (c *ticketController) Close(ctx *fiber.Ctx) error {
	res, err := c.ticketService.Close(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Ticket not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success close ticket", res))
}
