package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroom/internal/config"
	"github.com/mcdev12/quizroom/internal/push"
	"github.com/mcdev12/quizroom/internal/roomsync"
	"github.com/mcdev12/quizroom/internal/statehttp"
	"github.com/mcdev12/quizroom/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("server_url", cfg.ServerURL).
		Str("feed", cfg.Feed).
		Str("room_id", cfg.RoomID).
		Str("user_id", cfg.UserID).
		Msg("starting quizroom client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := transport.NewClient(cfg.ServerURL)

	sched := roomsync.DefaultSchedulerConfig()
	if cfg.PollBasePlayingSec > 0 {
		sched.BasePlaying = time.Duration(cfg.PollBasePlayingSec) * time.Second
	}
	if cfg.PollBaseWaitingSec > 0 {
		sched.BaseWaiting = time.Duration(cfg.PollBaseWaitingSec) * time.Second
	}

	engine := roomsync.New(roomsync.Config{
		RoomID:    cfg.RoomID,
		UserID:    cfg.UserID,
		UserName:  cfg.UserName,
		Scheduler: sched,
	}, client, nil, nil)

	// Push feed (optional; the engine degrades to pure polling without one).
	var feed push.Feed
	switch cfg.Feed {
	case config.FeedSocket:
		feed = push.NewSocket(push.DefaultSocketConfig(cfg.SocketURL), cfg.RoomID, cfg.UserID, engine.HandlePush)
	case config.FeedNATS:
		natsFeed, err := push.NewNATSFeed(push.DefaultNATSConfig(cfg.NATSURL), cfg.RoomID, engine.HandlePush)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect NATS feed")
		}
		feed = natsFeed
	case config.FeedNone:
		log.Warn().Msg("no push feed configured, running in pure polling mode")
	}

	errCh := make(chan error, 3)

	go func() {
		errCh <- engine.Run(ctx)
	}()

	if feed != nil {
		go func() {
			errCh <- feed.Start(ctx)
		}()
	}

	go func() {
		errCh <- statehttp.Serve(ctx, cfg.StateAddr, statehttp.NewHandler(engine))
	}()

	// Enter the room.
	if err := engine.Join(ctx, cfg.Passcode); err != nil {
		log.Fatal().Err(err).Msg("failed to join room")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("component failed")
		}
	}

	// Leave the room before tearing everything down.
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer leaveCancel()
	if err := engine.Leave(leaveCtx); err != nil {
		log.Warn().Err(err).Msg("failed to leave room cleanly")
	}

	if feed != nil {
		if err := feed.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close push feed")
		}
	}
	cancel()
}
