package server

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/stirosario/sti-ai-chat-sub006/internal/bootstrap"
	"github.com/stirosario/sti-ai-chat-sub006/internal/config"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/serverutils"
	"github.com/stirosario/sti-ai-chat-sub006/internal/websocket"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // chat turns are small
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PATCH, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Retry-After",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.ChatController.RegisterRoutes(api)
	c.TicketController.RegisterRoutes(api)

	registerTicketFeed(api, c)

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status":         "ok",
			"activeSessions": c.SessionGuard.ActiveCount(),
			"dirtySessions":  c.SessionStore.DirtyCount(),
		})
	})
}

// registerTicketFeed wires the technician websocket: JWT first, then the
// upgrade, then the hub takes over.
func registerTicketFeed(api fiber.Router, c *bootstrap.Container) {
	feed := api.Group("/ws")

	feed.Use(func(ctx *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	feed.Get("/tickets", serverutils.JwtMiddleware, fiberws.New(func(conn *fiberws.Conn) {
		technicianID := fmt.Sprintf("%v", conn.Locals("technician_id"))
		websocket.ServeWs(c.WebSocketHub, conn, technicianID)
	}))
}
