package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ardamas/internal/bootstrap"
	"ardamas/microservices/usecase"
)

const defaultListenAddr = ":8082"

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	addr := cfg.RefereeAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatalw("cant listen port", "addr", addr, "error", err)
	}

	server := usecase.NewGRPCServer(logger)

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info("Received shutdown signal")
		server.GracefulStop()
	}()

	logger.Infow("starting referee", "addr", addr)
	if err := server.Serve(lis); err != nil {
		logger.Fatalw("referee stopped", "error", err)
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return logger.Sugar()
}
