package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danieldev0724/chat-with-gpt/internal/config"
	apihttp "github.com/danieldev0724/chat-with-gpt/internal/http"
	"github.com/danieldev0724/chat-with-gpt/internal/llm"
	"github.com/danieldev0724/chat-with-gpt/internal/replication"
	"github.com/danieldev0724/chat-with-gpt/internal/repository"
	"github.com/danieldev0724/chat-with-gpt/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	replicaID := cfg.ReplicaID
	if replicaID == "" {
		replicaID = uuid.NewString()
	}

	var (
		repo    repository.ChatRepository = repository.NewMemoryChatRepository()
		channel replication.Channel       = replication.NewLoopbackChannel()
	)

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(ctxPing).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		repo = repository.NewRedisChatRepository(redisClient)
		channel = replication.NewRedisChannel(redisClient, replicaID, logger)
	}

	if cfg.DatabaseURL != "" {
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		repo = repository.NewPgChatRepository(pool)
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, zap.NewStdLog(logger))
	titles := llm.NewCompletionTitleGenerator(llmClient, cfg.TitleModel)

	chatSvc := service.NewChatService(logger, repo, channel, llmClient, titles)
	if err := chatSvc.Start(ctx); err != nil {
		logger.Fatal("chat service start", zap.Error(err))
	}
	searchSvc := service.NewSearchService(logger, chatSvc.Index(), chatSvc)

	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	searchHandler := apihttp.NewSearchHandler(logger, searchSvc)
	router := apihttp.NewRouter(logger, chatHandler, searchHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("replica_id", replicaID),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
