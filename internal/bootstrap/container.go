package bootstrap

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/stirosario/sti-ai-chat-sub006/internal/config"
	"github.com/stirosario/sti-ai-chat-sub006/internal/controller"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/logger"
	"github.com/stirosario/sti-ai-chat-sub006/internal/pkg/mailer"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/unitofwork"
	"github.com/stirosario/sti-ai-chat-sub006/internal/service"
	"github.com/stirosario/sti-ai-chat-sub006/internal/websocket"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/dialogue"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/guard"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm/factory"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/llm/gateway"
	pktNats "github.com/stirosario/sti-ai-chat-sub006/pkg/nats"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/session"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/steps"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/ticket"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	TicketController controller.ITicketController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub

	// Owned resources for shutdown
	SessionStore   *session.Store
	SessionGuard   *guard.ConcurrencyGuard
	SysLogger      logger.ILogger
	NatsPublisher  *pktNats.Publisher
	NatsSubscriber *pktNats.Subscriber
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	// The flow audit trail goes to its own file so stage jumps can be grepped
	// without the rest of the application noise.
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus (in-process)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v (ticket emails go inline)", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	redisUp := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (sessions fall back to in-memory storage)", err)
		redisUp = false
	}

	// 3. AI Gateway
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.Provider,
		cfg.Ai.Model,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, cfg.Ai.Model)

	breaker := gateway.NewCircuitBreaker(cfg.Ai.BreakerTrips, cfg.Ai.BreakerCooloff)
	aiGateway := gateway.New(llmProvider, cfg.Ai.CallTimeout, breaker, sysLogger)
	stepGenerator := steps.NewGenerator(aiGateway, sysLogger)

	// 4. Session storage (write-back cache over redis, memory in dev)
	var backend session.Backend
	if redisUp {
		backend = session.NewRedisBackend(rdb)
	} else {
		backend = session.NewMemoryBackend(cfg.Limits.RetentionTTL)
	}
	sessionStore := session.NewStore(backend, session.StoreConfig{
		CacheSize:     cfg.Limits.SessionCacheSize,
		SessionTTL:    cfg.Limits.SessionTTL,
		RetentionTTL:  cfg.Limits.RetentionTTL,
		FlushInterval: cfg.Limits.FlushInterval,
		MaxDirty:      cfg.Limits.MaxDirtySessions,
	}, sysLogger)
	go sessionStore.Run()

	sessionGuard := guard.NewConcurrencyGuard(cfg.Limits.MaxActiveSessions, cfg.Limits.SessionTTL)
	go sessionGuard.Run(cfg.Limits.SessionTTL / 10)

	// 5. Ticket engine
	ticketStore := repository.NewTicketStore(uowFactory)
	ticketEngine := ticket.NewEngine(ticketStore, pubSub, cfg.Escalation.WhatsAppNumber, sysLogger)

	// 6. Dialogue orchestrator
	orchestrator := dialogue.NewOrchestrator(
		dialogue.Config{DeviceConfidenceThreshold: cfg.Limits.ClassifierThreshold},
		sessionStore,
		session.NewKeyLock(cfg.Limits.LockWait),
		guard.NewRateLimiter(cfg.Limits.RateWindow, cfg.Limits.RateMaxPerSession),
		guard.NewRateLimiter(cfg.Limits.RateWindow, cfg.Limits.RateMaxPerIP),
		sessionGuard,
		stepGenerator,
		ticketEngine,
		pubSub,
		auditLogger,
	)

	// 7. WebSocket Hub (technician ticket feed)
	wsLogger := logger.NewIsolatedLogger("logs/ticket-feed.log")
	var hubRedis *redis.Client
	if redisUp {
		hubRedis = rdb
	}
	wsHub := websocket.NewHub(hubRedis, wsLogger)
	go wsHub.Run()

	// 8. Services
	chatService := service.NewChatService(orchestrator)
	ticketService := service.NewTicketService(uowFactory)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Escalation.TechnicianEmail,
		emailService,
		natsPub,
		natsSub,
		ticketService,
		wsHub,
		sysLogger,
	)

	// 9. Controllers
	return &Container{
		ChatController:   controller.NewChatController(chatService),
		TicketController: controller.NewTicketController(ticketService),

		ConsumerService: consumerService,

		WebSocketHub: wsHub,

		SessionStore:   sessionStore,
		SessionGuard:   sessionGuard,
		SysLogger:      sysLogger,
		NatsPublisher:  natsPub,
		NatsSubscriber: natsSub,
	}
}
