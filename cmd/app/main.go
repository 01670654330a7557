package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"falplatform/config"
	"falplatform/internal/application/usecase"
	"falplatform/internal/infrastructure/cache"
	"falplatform/internal/infrastructure/ledger"
	"falplatform/internal/infrastructure/oracle"
	"falplatform/internal/infrastructure/payment"
	"falplatform/internal/infrastructure/repository"
	"falplatform/internal/infrastructure/security"
	"falplatform/internal/logger"
	"falplatform/internal/middleware"
	grpc_handler "falplatform/internal/transport/grpc"
	handlers "falplatform/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := repository.OpenPostgres(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		log.Fatal("Failed to connect to DB", zap.Error(err))
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate DB", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Без Redis сервис работает: лимиты в Postgres, леджер деградирует
		log.Warn("Redis is unavailable at startup", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	ritualRepo := repository.NewRitualRepository(db)
	fortuneRepo := repository.NewFortuneRepository(db)

	tokenManager := security.NewTokenManager(cfg.AccessSecret, cfg.RefreshSecret)
	tokenCache := cache.NewTokenCache(rdb, tokenManager.RefreshTTL())
	hasher := security.NewPasswordHasher()
	purchases := ledger.New(rdb, log.Named("ledger"))

	frontend := strings.TrimRight(cfg.FrontendURL, "/")
	stripeClient := payment.NewClient(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.StripeCurrency,
		SuccessURL:    frontend + "/rituals?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     frontend + "/rituals?checkout=cancel",
	})
	gpt := oracle.NewGPTOracle(oracle.Config{
		APIKey: cfg.OpenAIKey,
		Model:  cfg.OpenAIModel,
	})

	roles := cfg.RoleTable()
	loc := cfg.Location()

	entitlements := usecase.NewEntitlementUseCase(entitlementRepo, userRepo, cfg.AnonymousDefaults(), loc, log.Named("entitlements"))
	auth := usecase.NewAuthUseCase(userRepo, tokenCache, hasher, tokenManager, roles, loc, log.Named("auth"))
	fortunes := usecase.NewFortuneUseCase(entitlements, fortuneRepo, gpt, log.Named("fortunes"))
	rituals := usecase.NewRitualUseCase(ritualRepo, userRepo, purchases, stripeClient, log.Named("rituals"))
	admin := usecase.NewAdminUseCase(userRepo, entitlements, rituals, roles, log.Named("admin"))

	httpLog := log.Named("http")
	router := handlers.NewRouter(handlers.Handlers{
		Auth:     handlers.NewAuthHandler(auth, cfg.IsProduction(), httpLog),
		Limits:   handlers.NewLimitsHandler(entitlements, httpLog),
		Fortunes: handlers.NewFortuneHandler(fortunes, httpLog),
		Rituals:  handlers.NewRitualHandler(rituals, httpLog),
		Webhooks: handlers.NewWebhookHandler(stripeClient, rituals, httpLog),
		Admin:    handlers.NewAdminHandler(admin, httpLog),
	}, middleware.NewRateLimiter(rdb, httpLog), auth, cfg.Origins(), httpLog)

	srv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := grpc_handler.NewHealthServer(map[string]grpc_handler.Probe{
		grpc_handler.ServiceEntitlements: sqlDB.PingContext,
		grpc_handler.ServiceLedger: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}, log.Named("health"))

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("Failed to listen", zap.String("addr", cfg.GRPCPort), zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	reflection.Register(grpcServer)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go health.Run(ctx, 15*time.Second)

	go func() {
		log.Info("gRPC health is running", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Fal platform API is running", zap.String("addr", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Shutting down server...")
	stop()
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	if err := rdb.Close(); err != nil {
		log.Warn("Redis close", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("DB close", zap.Error(err))
	}
}
