package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appassistant "github.com/simatecve/reten-facil-sub000/internal/application/assistant"
	appbilling "github.com/simatecve/reten-facil-sub000/internal/application/billing"
	appcompany "github.com/simatecve/reten-facil-sub000/internal/application/company"
	appidentity "github.com/simatecve/reten-facil-sub000/internal/application/identity"
	appretention "github.com/simatecve/reten-facil-sub000/internal/application/retention"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/ai"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/auth"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/config"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/logger"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/persistence"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/printing"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/storage"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/handler"
	"github.com/simatecve/reten-facil-sub000/internal/interfaces/http/router"
)

const version = "1.0.0"

// objectStore is the union of the upload surfaces the application
// services need, satisfied by both the S3 and in-memory backends.
type objectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}()
	log.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName))

	// Token revocation uses Redis so logouts survive restarts and are shared
	// across replicas. Falls back to in-process storage when Redis is down.
	var blacklist auth.TokenBlacklist
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	cancelPing()

	var objectStorage objectStore
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
		log.Info("object storage ready", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		log.Warn("object storage not configured, uploads are kept in memory")
		objectStorage = storage.NewMemoryObjectStorage()
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	userRepo := persistence.NewGormUserRepository(db.DB)
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)
	draftRepo := persistence.NewGormDraftRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)

	planService := appbilling.NewPlanService(planRepo, log)
	subscriptionService := appbilling.NewSubscriptionService(subscriptionRepo, planRepo, objectStorage, log)
	authService := appidentity.NewAuthService(userRepo, jwtService, blacklist, subscriptionService, log)
	companyService := appcompany.NewService(companyRepo, objectStorage, subscriptionService, log)
	voucherService := appretention.NewVoucherService(voucherRepo, draftRepo, companyRepo, subscriptionService, log)

	var extractionService *appassistant.ExtractionService
	var chatService *appassistant.ChatService
	aiClient, err := ai.NewClient(&cfg.OpenAI)
	if err != nil {
		log.Fatal("failed to initialize AI client", zap.Error(err))
	}
	if aiClient != nil {
		extractionService = appassistant.NewExtractionService(aiClient, subscriptionService, cfg.OpenAI.Model, log)
		chatService = appassistant.NewChatService(aiClient, subscriptionService, cfg.OpenAI.Model, log)
		log.Info("assistant enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		log.Warn("assistant disabled, extraction and chat endpoints will answer 503")
	}

	var renderer printing.PDFRenderer
	chromeRenderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Printing.RenderTimeout,
		ExecPath:       cfg.Printing.ChromePath,
		NoSandbox:      true,
		Logger:         log,
	})
	if err != nil {
		log.Warn("PDF renderer unavailable, voucher downloads limited to HTML", zap.Error(err))
	} else {
		renderer = chromeRenderer
		defer func() {
			if err := chromeRenderer.Close(); err != nil {
				log.Error("failed to close PDF renderer", zap.Error(err))
			}
		}()
	}

	engine := router.New(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		JWTService:     jwtService,
		TokenBlacklist: blacklist,

		System:    handler.NewSystemHandler(db, cfg.App.Name, version),
		Auth:      handler.NewAuthHandler(authService, log),
		Company:   handler.NewCompanyHandler(companyService, log),
		Voucher:   handler.NewVoucherHandler(voucherService, renderer, log),
		Assistant: handler.NewAssistantHandler(extractionService, chatService, log),
		Billing:   handler.NewBillingHandler(planService, subscriptionService, log),
		Admin:     handler.NewAdminHandler(planService, subscriptionService, log),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
