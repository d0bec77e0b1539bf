package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interviewhub/backend/internal/ai"
	"interviewhub/backend/internal/analysis"
	"interviewhub/backend/internal/api/handler"
	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/chathub"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/logging"
	"interviewhub/backend/internal/ratelimit"
	"interviewhub/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// setupStorage відкриває PostgreSQL та Redis. Без DSN працюємо в пам'яті з
// демо-даними.
func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, *redis.Client, error) {
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
	}

	if cfg.Database.DSN == "" {
		logger.Warn("database.dsn is empty, using in-memory storage with demo data")
		mem := storage.NewMemoryStore()
		mem.Load(storage.DemoFixtures())
		return mem, rdb, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	s := storage.NewStorageService(db, rdb)
	// Міграції (створення таблиць)
	if err := s.AutoMigrate(); err != nil {
		return nil, nil, err
	}
	logger.Info("database connection established, migrations complete")
	return s, rdb, nil
}

func setupLimiter(ctx context.Context, cfg *config.Config, rdb *redis.Client) ratelimit.Limiter {
	rl := ratelimit.Config{Events: cfg.RateLimit.Events, Window: cfg.RateLimit.Window}
	if cfg.RateLimit.Backend == "redis" && rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, rl, "interviewhub:ratelimit:")
	}
	mem := ratelimit.NewMemoryLimiter(rl)
	go mem.RunJanitor(ctx, cfg.RateLimit.Window)
	return mem
}

func setupGenerator(cfg *config.Config, logger *zap.Logger) ai.Generator {
	if cfg.AI.APIKey == "" {
		logger.Warn("ai.api_key is empty, using the rule-based interviewer")
		return ai.NewRuleBasedGenerator()
	}
	g, err := ai.NewOpenAIGenerator(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout)
	if err != nil {
		logger.Warn("openai generator unavailable, using the rule-based interviewer", zap.Error(err))
		return ai.NewRuleBasedGenerator()
	}
	return g
}

func main() {
	configPath := flag.String("config", os.Getenv("INTERVIEWHUB_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	store, rdb, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up storage", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// 2. Chat Hub
	hub := chathub.NewManagerService(chathub.Options{
		Storage:   store,
		Limiter:   setupLimiter(ctx, cfg, rdb),
		Generator: setupGenerator(cfg, logger),
		Analyzer:  analysis.NewKeywordAnalyzer(),
		Chat:      cfg.Chat,
		Logger:    logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authn := auth.NewAuthenticator(tokens, auth.DirectoryLookup(store))

	// 3. Gin та роутинг
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(hub, authn, tokens, cfg.HTTP.AllowedOrigins, logger)
	h.IssueEnabled = cfg.Auth.IssueEnabled

	server := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        h.Router(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("gateway listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("hub shutdown", zap.Error(err))
	}
	logger.Info("gateway stopped")
}
