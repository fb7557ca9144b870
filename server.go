package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"

	"anonchat/api/handlers"
	"anonchat/api/middleware"
	"anonchat/api/routes"
	"anonchat/config"
	"anonchat/db"
	"anonchat/logging"
	"anonchat/services"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	logging.Init(config.AppConfig.Logs.Level)
	log := logging.L()
	log.Info("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	if err := services.InitRedis(); err != nil {
		panic("Failed to connect to redis: " + err.Error())
	}
	defer func() { _ = services.CloseRedis() }()

	presence, err := services.NewPresenceService(services.RedisClient)
	if err != nil {
		panic("Failed to init presence service: " + err.Error())
	}
	unread, err := services.NewUnreadCounterService(services.RedisClient)
	if err != nil {
		panic("Failed to init unread counters: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// брокер не критичен для старта: без него работаем без push-уведомлений
	if err := services.InitRabbitMQ(); err != nil {
		log.Warnf("rabbitmq unavailable, change feed disabled: %v", err)
	} else {
		defer services.CloseRabbitMQ()
		if err := services.StartChatEventConsumer(ctx, "chat_events_ws"); err != nil {
			log.Warnf("failed to start chat event consumer: %v", err)
		}
	}

	services.StartLastSeenWorkers(ctx)

	// дельты присутствия уходят всем открытым сессиям
	if err := presence.Subscribe(ctx, func(event services.PresenceEvent) {
		services.GlobalWSConnManager.Broadcast(gin.H{
			"event":     "presence." + event.Event,
			"user_id":   event.UserID,
			"online_at": event.OnlineAt,
		})
	}); err != nil {
		log.Warnf("presence subscription failed: %v", err)
	}

	rateLimits := services.NewRateLimitService()
	scheduler := services.StartScheduler(ctx, rateLimits, presence, unread)
	defer scheduler.Stop()

	users := services.NewUserService()
	blocks := services.NewBlockService()
	chat := services.NewChatService(blocks, unread)
	match := services.NewMatchService(presence, rateLimits)
	typingTransport := services.NewRedisTypingTransport(services.RedisClient)

	registry := &routes.Registry{
		Auth:  handlers.NewAuthHandlers(users),
		User:  handlers.NewUserHandlers(users, blocks),
		Chat:  handlers.NewChatHandlers(chat, blocks),
		Match: handlers.NewMatchHandlers(match),
		WS:    handlers.NewWSHandlers(services.GlobalWSConnManager, presence, chat, typingTransport),
	}

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.PrometheusMiddleware())

	routes.PublicApi(router, registry, users)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
