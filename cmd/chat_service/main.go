package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime_chat_service/internal/chat/app"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/internal/chat/router"
	"realtime_chat_service/pkg/config"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/profiling"
	"realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadChatConfig()
	if err != nil {
		logger.Log.Fatal("load config", zap.Error(err))
	}
	token.SetSecret(cfg.JWT.Secret)
	profiling.StartPprof(cfg.PprofAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 訊息 / 對話儲存
	var (
		msgRepo  repository.MessageRepository
		convRepo repository.ConversationRepository
		mongoDB  *database.MongoDB
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := repository.NewMemoryStore()
		msgRepo, convRepo = store, store
		logger.Log.Warn("using in-memory storage, messages are lost on restart")
	default:
		uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
		mongoDB, err = database.NewMongoDB(ctx,
			database.Connection{
				ConnectStr:    uri,
				RetryCount:    cfg.MongoSQL.RetryCount,
				RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
			},
			cfg.MongoSQL.Database)
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to mongoDB database after retries",
				zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
				zap.Error(err),
			)
		}
		if err := repository.EnsureMessageIndexes(ctx, mongoDB.Database); err != nil {
			logger.Log.Fatal("create message indexes", zap.Error(err))
		}
		msgRepo = repository.NewMongoMessageRepository(mongoDB.Database)
		convRepo = repository.NewMongoConversationRepository(mongoDB.Database)
	}

	// 2. Redis presence mirror
	var mirror app.PresenceMirror
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisClient(ctx, database.RedisConnection{
			Addr:          cfg.Redis.Addr,
			MasterName:    cfg.Redis.MasterName,
			SentinelAddrs: cfg.Redis.SentinelAddrs,
			DB:            cfg.Redis.RedisDB,
		})
		if err != nil {
			logger.Log.Fatal("connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		mirror = repository.NewRedisPresence(redisClient)
	}

	// 3. Kafka event stream
	var (
		sink      app.EventSink
		kafkaSink *repository.KafkaEventSink
	)
	if cfg.Kafka.Enabled {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval) * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect kafka", zap.Error(err))
		}
		kafkaSink = repository.NewKafkaEventSink(writer)
		sink = kafkaSink
	}

	// 4. realtime core
	registry := app.NewConnectionRegistry()
	dispatcher := app.NewDispatcher(registry)
	presence := app.NewPresenceBroadcaster(registry, dispatcher, mirror)
	coordinator := app.NewDeliveryCoordinator(registry, dispatcher, msgRepo, convRepo, sink)
	go presence.Run(ctx)

	// 5. 啟動 Fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Log.Fatal("Failed to open access log", zap.Error(err))
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewChatWebsocketHandler(presence, coordinator, dispatcher, cfg.WebSocket),
		app.NewConversationHandler(coordinator))

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		registry.CloseAll()
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port), zap.String("storage", cfg.Storage))
	if err := r.Listen(port); err != nil {
		logger.Log.Error("Failed to start Fiber", zap.Error(err))
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Log.Error("close kafka writer", zap.Error(err))
		}
	}
	if mongoDB != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			logger.Log.Error("close mongo", zap.Error(err))
		}
	}
}
