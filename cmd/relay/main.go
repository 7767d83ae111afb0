package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ardamas/internal/adapters"
	"ardamas/internal/bootstrap"
	relayDelivery "ardamas/internal/delivery/relay"
	repo "ardamas/internal/repository"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backplane, closeBackplane := initBackplane(ctx, logger, cfg)
	defer closeBackplane()

	r := chi.NewRouter()
	relayDelivery.NewRelayHandler(logger, backplane).Router(r)

	server := &http.Server{Addr: cfg.RelayAddr, Handler: r}
	go handleShutdown(cancel, logger, server)

	logger.Infof("Relay is running on %s", cfg.RelayAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

// initBackplane uses redis when REDIS_URL is set so several relay instances
// can share rooms, and process memory otherwise.
func initBackplane(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) (repo.Backplane, func()) {
	if cfg.RedisUrl == "" {
		log.Info("Using in-memory backplane")
		return repo.NewMemoryBackplane(), func() {}
	}

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		log.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	return repo.NewRedisBackplane(log, redisAdapter.GetClient()), func() {
		_ = redisAdapter.Close(context.Background())
	}
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger, server *http.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown", zap.Error(err))
	}
	cancelFunc()
}
