package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ceritanya-photobox/internal/assembly"
	"ceritanya-photobox/internal/capture"
	"ceritanya-photobox/internal/config"
	"ceritanya-photobox/internal/gemini"
	"ceritanya-photobox/internal/handlers"
	"ceritanya-photobox/internal/httpclient"
	"ceritanya-photobox/internal/photobox"
	"ceritanya-photobox/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4:    cfg.PreferIPv4,
		Timeout:       cfg.HTTPTimeout,
		HeaderTimeout: cfg.HTTPHeaderTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	vault := photobox.NewVault(cfg.VoucherCodes)
	store := photobox.NewStore(photobox.StoreOptions{
		Costs:         cfg.Costs,
		Vault:         vault,
		NewspaperMode: cfg.NewspaperModeEnabled,
	})

	compositor := assembly.New(assembly.Options{
		CaptionFontPath: cfg.CaptionFontPath,
		Logger:          logger,
	})

	studio := photobox.NewStudio(photobox.StudioOptions{
		Store:     store,
		Generator: gem,
		Enhancer:  gem,
		Adjuster:  compositor,
		Logger:    logger,
	})

	captureSvc := capture.New(capture.Options{
		Store:  store,
		Logger: logger,
	})

	var deliverer *telegram.Deliverer
	if cfg.TelegramToken != "" && cfg.DeliveryChatID != 0 {
		deliverer, err = telegram.New(telegram.Options{
			Token:      cfg.TelegramToken,
			ChatID:     cfg.DeliveryChatID,
			HTTPClient: httpClient,
			Logger:     logger,
			Debug:      cfg.Debug,
		})
		if err != nil {
			logger.Error("telegram init failed, delivery disabled", "err", err)
			deliverer = nil
		}
	}

	handler := handlers.New(handlers.Options{
		Store:            store,
		Studio:           studio,
		Capture:          captureSvc,
		Compositor:       compositor,
		Deliverer:        deliverer,
		Logger:           logger,
		CountdownSeconds: cfg.CountdownSeconds,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("photobox started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
