package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hashora/settlement-service/internal/app/background"
	"github.com/hashora/settlement-service/internal/client"
	"github.com/hashora/settlement-service/internal/config"
	deliveryhttp "github.com/hashora/settlement-service/internal/delivery/http"
	"github.com/hashora/settlement-service/internal/delivery/http/handlers"
	"github.com/hashora/settlement-service/internal/infrastructure/chain"
	"github.com/hashora/settlement-service/internal/infrastructure/kafka"
	"github.com/hashora/settlement-service/internal/infrastructure/metrics"
	"github.com/hashora/settlement-service/internal/infrastructure/migrate"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres"
	"github.com/hashora/settlement-service/internal/infrastructure/postgres/repository"
	"github.com/hashora/settlement-service/internal/ratelimit"
	"github.com/hashora/settlement-service/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	setupLogger(cfg)

	// Init database
	db := postgres.MustInitDB(cfg)
	if cfg.SettlementDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.SettlementDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Chain adapters
	evmClient, err := chain.DialEVMClient(ctx, cfg.EVMRPC.URL)
	if err != nil {
		log.Fatalf("failed to dial evm rpc: %v", err)
	}
	adapters := chain.Adapters{
		Solana: chain.NewSolanaAdapter(cfg.SolanaRPC.URL, cfg.SolanaRPC.USDTMint, cfg.Settlement.RPCTimeout),
		EVM:    chain.NewEVMAdapter(evmClient, cfg.EVMRPC.USDTContract),
		Tron:   chain.NewTronAdapter(cfg.TronAPI.URL, cfg.TronAPI.USDTContract, cfg.TronAPI.APIKey, cfg.Settlement.RPCTimeout),
	}

	// Kafka publisher
	brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
	pub := kafka.NewDefaultKafkaPublisher(brokers)

	// User directory client
	directory := client.NewHTTPUserDirectory(
		fmt.Sprintf("http://%s:%s", cfg.UserService.Host, cfg.UserService.Port),
		cfg.Settlement.RPCTimeout,
	)

	// Repositories
	orderRepo := repository.NewDefaultOrderRepository(db)
	fulfillmentRepo := repository.NewDefaultFulfillmentRepository(db)
	walletRepo := repository.NewDefaultWalletRepository(db)

	// Metrics
	m := metrics.NewSettlementMetrics()

	// Usecases
	fulfillmentUC := usecase.NewDefaultFulfillmentUsecase(
		fulfillmentRepo,
		walletRepo,
		orderRepo,
		pub,
		cfg.KafkaService.Topic,
		m,
	)
	settlementUC := usecase.NewDefaultSettlementUsecase(
		orderRepo,
		walletRepo,
		directory,
		adapters,
		fulfillmentUC,
		m,
		cfg.Settlement.OrderTTL,
		cfg.Settlement.AllowLegacySenderFallback,
	)

	// Rate limiter
	limiter := ratelimit.NewLimiter(map[string]ratelimit.Policy{
		ratelimit.OpAPI:           {Window: time.Minute, Limit: cfg.RateLimits.APIPerMinute},
		ratelimit.OpSecretDecrypt: {Window: time.Minute, Limit: cfg.RateLimits.DecryptPerMinute},
		ratelimit.OpKeyRotation:   {Window: time.Hour, Limit: cfg.RateLimits.KeyRotationPerHour},
	}, ratelimit.NewMemoryStore())

	// Background workers
	tasks := background.NewBackgroundTasks(settlementUC, fulfillmentUC, orderRepo, limiter, cfg.Settlement)
	tasks.StartAll(ctx)

	// HTTP server
	orderHandler := handlers.NewOrderHandler(settlementUC)
	router := deliveryhttp.NewRouter(orderHandler, limiter, m)

	addr := fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("HTTP server started on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err.Error())
	}
}

func setupLogger(cfg *config.SettlementConfig) {
	var level slog.Level
	switch cfg.LogConfig.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.LogConfig.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
