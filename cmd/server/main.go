package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/premeet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/premeet/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/premeet/internal/adapter/driven/persistence/redis"
	"github.com/Wyydra/premeet/internal/adapter/driven/persistence/sqlstore"
	handler "github.com/Wyydra/premeet/internal/adapter/driving/http"
	"github.com/Wyydra/premeet/internal/config"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/service"
	"github.com/Wyydra/premeet/internal/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logging.Setup("info", true)
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flag.StringVar(&cfg.PollBackend, "poll-backend", cfg.PollBackend, "memory, sqlite or postgres")
	flag.StringVar(&cfg.RoomStateBackend, "room-state-backend", cfg.RoomStateBackend, "memory or redis")
	flag.Parse()

	l := logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	rooms, closeRooms := openRoomState(l, cfg)
	defer closeRooms()

	polls, closePolls := openPolls(l, cfg)
	defer closePolls()

	hub := ws.NewHub(rooms)
	pollService := service.NewPollService(polls)
	h := handler.NewHandler(hub, rooms, pollService, handler.Options{
		ICEServers: cfg.ICEServers,
		MsgRate:    rate.Limit(cfg.MsgRate),
		MsgBurst:   cfg.MsgBurst,
	})

	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).
			Str("room_state", cfg.RoomStateBackend).
			Str("polls", cfg.PollBackend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	l.Info().Msg("Server exited")
}

func openRoomState(l zerolog.Logger, cfg *config.Config) (port.RoomStateStore, func()) {
	if cfg.RoomStateBackend != config.BackendRedis {
		return memory.NewRoomStateStore(), func() {}
	}
	s := redis.NewRoomStateStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		l.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to reach redis")
	}
	return s, func() { s.Close() }
}

func openPolls(l zerolog.Logger, cfg *config.Config) (port.PollRepository, func()) {
	if cfg.PollBackend == config.BackendMemory {
		return memory.NewPollRepository(), func() {}
	}
	db, err := sqlstore.Open(cfg.PollBackend, cfg.PollDSN)
	if err != nil {
		l.Fatal().Err(err).Str("backend", cfg.PollBackend).Msg("Failed to open poll database")
	}
	return sqlstore.NewPollRepository(db, cfg.PollBackend), func() { db.Close() }
}
