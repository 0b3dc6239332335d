package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/notify"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.LogLevel)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	broker := notify.NewBroker()
	notifier := service.NotifierFunc(func(ownerID string, session service.SessionView) {
		broker.Publish(ownerID, notify.Event{Type: notify.EventSessionEnded, Data: session})
	})

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL())
	sessionService := service.NewSessionService(sessionRepo, notifier, cfg.FocusMinutes*60)
	breakPolicy := service.BreakPolicy{
		ShortSeconds: cfg.ShortBreakMinutes * 60,
		LongSeconds:  cfg.LongBreakMinutes * 60,
		LongEvery:    cfg.LongBreakEvery,
	}

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(sessionService, breakPolicy)
	eventsHandler := handler.NewEventsHandler(broker)

	engine := router.New(authService, authHandler, sessionHandler, eventsHandler, cfg.CORSOrigins)
	log.Info().Str("addr", cfg.Addr()).Msg("backend listening")
	if err := engine.Run(cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
