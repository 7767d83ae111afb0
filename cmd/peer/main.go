package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ardamas/internal/adapters"
	"ardamas/internal/bootstrap"
	"ardamas/internal/delivery/console"
	"ardamas/internal/delivery/link"
	"ardamas/internal/domain/checkers"
	repo "ardamas/internal/repository"
	"ardamas/internal/usecase/peersync"
	"ardamas/internal/usecase/rules"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	color, err := checkers.ParsePlayer(cfg.PeerColor)
	if err != nil {
		logger.Error("Invalid PEER_COLOR", zap.Error(err))
		return
	}
	peerName := cfg.PeerName
	if peerName == "" {
		peerName = uuid.New().String()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	peerLink, err := link.Dial(dialCtx, logger, cfg.RelayUrl, cfg.Room, peerName)
	dialCancel()
	if err != nil {
		logger.Error("Failed to join relay room", zap.Error(err))
		return
	}
	defer peerLink.Close()

	session := peersync.NewSession(rules.NewEngine(color), peerLink, logger, peersync.WithEventBuffer(cfg.EventBuffer))
	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorw("session stopped", "error", err)
		}
	}()
	go func() {
		if err := peerLink.Listen(ctx, session.OnRemoteEnvelope); err != nil && ctx.Err() == nil {
			logger.Errorw("relay connection lost", "error", err)
		}
		cancel()
	}()

	opts := initConsoleOptions(ctx, logger, cfg, peerName)
	driver := console.NewConsole(logger, session, os.Stdout, opts.options...)
	defer opts.close()

	go driver.WatchEvents(ctx)

	logger.Infow("peer ready", "room", cfg.Room, "peer", peerName, "color", color)
	_ = driver.Execute(ctx, "board")

	// stdin cannot be interrupted, so a lost relay ends the peer without
	// waiting for the next line
	commandsDone := make(chan error, 1)
	go func() { commandsDone <- driver.ReadCommands(ctx, os.Stdin) }()
	select {
	case <-ctx.Done():
	case err := <-commandsDone:
		if err != nil {
			logger.Errorw("reading commands", "error", err)
		}
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

type consoleOptions struct {
	options []console.Option
	closers []func()
}

func (c consoleOptions) close() {
	for _, fn := range c.closers {
		fn()
	}
}

// initConsoleOptions wires the optional match archive and referee. A backend
// that fails to start is logged and left out.
func initConsoleOptions(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config, peerName string) consoleOptions {
	var opts consoleOptions

	if cfg.MongoUri != "" {
		mongoAdapter := adapters.NewAdapterMongo(cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			log.Warnw("match archive disabled", "error", err)
		} else {
			archive := repo.NewMatchRepository(log, mongoAdapter.Database)
			opts.options = append(opts.options, console.WithArchive(archive, cfg.Room, peerName))
			opts.closers = append(opts.closers, func() { _ = mongoAdapter.Close(context.Background()) })
		}
	}

	if cfg.RefereeAddr != "" {
		refereeAdapter := adapters.NewAdapterReferee(cfg, log)
		if err := refereeAdapter.Init(); err != nil {
			log.Warnw("referee disabled", "error", err)
		} else {
			opts.options = append(opts.options, console.WithReferee(refereeAdapter))
			opts.closers = append(opts.closers, func() { _ = refereeAdapter.Close() })
		}
	}

	return opts
}
