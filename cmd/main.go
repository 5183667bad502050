package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cybertourney/tournament-client/client"
	"github.com/cybertourney/tournament-client/config"
	"github.com/cybertourney/tournament-client/state"
	"github.com/cybertourney/tournament-client/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.String("base_url", cfg.BaseURL))

	// Хранилище сессии и шлюз API
	sessions, err := storage.NewFileSessionStore(cfg.SessionFile)
	if err != nil {
		logger.Error("failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}

	api := client.New(cfg.BaseURL, sessions, &http.Client{Timeout: cfg.HTTPTimeout})
	app := state.NewStore(api, logger)
	logger.Info("client initialized")

	ctx := context.Background()

	// Восстановленная сессия используется, пока не истёк её токен;
	// иначе входим по учётным данным из окружения, если они заданы.
	if expiresAt, ok := api.SessionExpiresAt(); ok && time.Now().Before(expiresAt) {
		logger.Info("stored session restored", slog.Time("expires_at", expiresAt))
	} else if username := os.Getenv("TOURNAMENT_USERNAME"); username != "" {
		if !app.Login(ctx, username, os.Getenv("TOURNAMENT_PASSWORD")) {
			logger.Error("login failed", slog.String("error", app.Snapshot().Error))
			os.Exit(1)
		}
		logger.Info("logged in", slog.String("username", username))
	} else {
		logger.Info("no stored session and no credentials, browsing anonymously")
	}

	app.RefreshAll(ctx, os.Getenv("TOURNAMENT_GAME"))

	snapshot := app.Snapshot()
	if snapshot.Error != "" {
		logger.Error("refresh failed", slog.String("error", snapshot.Error))
		os.Exit(1)
	}
	logger.Info("state refreshed",
		slog.Int("tournaments", len(snapshot.Tournaments)),
		slog.Int("teams", len(snapshot.Teams)),
	)
}
