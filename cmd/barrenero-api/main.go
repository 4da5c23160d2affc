package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PeRDy/barrenero-api/internal/api"
	"github.com/PeRDy/barrenero-api/internal/client"
	"github.com/PeRDy/barrenero-api/internal/config"
	"github.com/PeRDy/barrenero-api/internal/pkg/logger"
	"github.com/PeRDy/barrenero-api/internal/service"
	"github.com/PeRDy/barrenero-api/internal/telemetry"
	"github.com/PeRDy/barrenero-api/pkg/metrics"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	slog.SetDefault(logger.NewSlog(zapLogger))

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	nanopoolClient := client.NewNanopoolClient(
		cfg.Nanopool.BaseURL,
		time.Duration(cfg.Nanopool.RequestTimeoutMillis)*time.Millisecond,
		newLimiter(cfg.Nanopool.UpstreamConfig),
		zapLogger,
	)
	etherscanClient := client.NewEtherscanClient(
		cfg.Etherscan.BaseURL,
		cfg.Etherscan.Token,
		time.Duration(cfg.Etherscan.RequestTimeoutMillis)*time.Millisecond,
		newLimiter(cfg.Etherscan.UpstreamConfig),
		zapLogger,
	)
	ethplorerClient := client.NewEthplorerClient(
		cfg.Ethplorer.BaseURL,
		cfg.Ethplorer.Token,
		time.Duration(cfg.Ethplorer.RequestTimeoutMillis)*time.Millisecond,
		newLimiter(cfg.Ethplorer.UpstreamConfig),
		zapLogger,
	)
	zapLogger.Info("Upstream clients initialized")

	detector := telemetry.NewDetector(
		cfg.Miner.ValuesLog,
		cfg.Miner.WindowSize,
		time.Duration(cfg.Miner.MaxIdleSeconds)*time.Second,
		zapLogger,
	)

	minerSvc := service.NewMinerService(
		nanopoolClient,
		detector,
		cfg.Account,
		cfg.Nanopool.Worker,
		cfg.Retry.MaxAttempts,
		zapLogger,
	)
	walletSvc := service.NewWalletService(
		etherscanClient,
		ethplorerClient,
		cfg.Account,
		cfg.Retry.MaxAttempts,
		time.Duration(cfg.Wallet.PriceCacheTTLMinutes)*time.Minute,
		zapLogger,
	)
	statusSvc := service.NewStatusService(cfg.Status.Miners, zapLogger)
	zapLogger.Info("Services initialized")

	handler := api.NewHandler(minerSvc, walletSvc, statusSvc, cfg.Account)
	router := api.SetupRouter(handler, zapLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}

// newLimiter builds the per-upstream rate limiter; no limiter when the
// config leaves the rate unset.
func newLimiter(cfg config.UpstreamConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}
