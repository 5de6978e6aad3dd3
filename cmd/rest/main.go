package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stirosario/sti-ai-chat-sub006/internal/bootstrap"
	"github.com/stirosario/sti-ai-chat-sub006/internal/config"
	"github.com/stirosario/sti-ai-chat-sub006/internal/server"
	"github.com/stirosario/sti-ai-chat-sub006/internal/tracer"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server, drain sessions on SIGTERM so no turn is lost
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		log.Println("Shutting down: draining dirty sessions...")
		container.SessionStore.Close()
		container.SessionGuard.Stop()
		if container.NatsPublisher != nil {
			container.NatsPublisher.Close()
		}
		if container.NatsSubscriber != nil {
			container.NatsSubscriber.Close()
		}
		_ = container.SysLogger.Sync()
		_ = srv.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
