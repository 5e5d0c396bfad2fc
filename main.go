package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"blur-chat/internal/auth"
	"blur-chat/internal/config"
	"blur-chat/internal/handlers"
	"blur-chat/internal/middleware"
	"blur-chat/internal/observability"
	"blur-chat/internal/rabbitmq"
	"blur-chat/internal/storage"
	"blur-chat/internal/store"
	"blur-chat/internal/telemetry"
	"blur-chat/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, "blur-chat", cfg.TracingEnabled)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracer(ctx)

	var snapshots storage.SnapshotStore
	if cfg.DBDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.DBDSN, cfg.SnapshotName)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pg.Close()
		snapshots = pg
	} else {
		snapshots = storage.NewFileStore(cfg.DataFile)
	}

	convStore, err := store.New(ctx, snapshots)
	if err != nil {
		log.Fatalf("failed to load state: %v", err)
	}
	users, messages := convStore.Counts()
	log.Printf("loaded state users=%d messages=%d", users, messages)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	emitter := telemetry.NewEventEmitter(publisher, "blur-chat", cfg.Environment)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	presence := ws.NewPresenceRegistry()
	typing := ws.NewTypingTracker()
	msgRouter := ws.NewMessageRouter(convStore, presence, typing, emitter)
	lifecycle := ws.NewLifecycleManager(convStore, presence, typing, emitter)
	wsHandler := ws.NewHandler(lifecycle, msgRouter, tokens)

	authHandler := handlers.NewAuthHandler(convStore, tokens)
	userHandler := handlers.NewUserHandler(convStore, presence)

	router := gin.New()

	// middlewares
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("blur-chat"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	handlers.RegisterStatusRoute(router, convStore, presence)
	router.POST("/api/auth/signup", authHandler.Signup)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/users", authMiddleware, userHandler.ListUsers)
	router.GET("/api/messages/:user_id1/:user_id2", authMiddleware, userHandler.History)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
