package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"newsassist/internal/cache"
	"newsassist/internal/config"
	"newsassist/internal/filter"
	"newsassist/internal/httpapi"
	"newsassist/internal/infrastructure/feedsource"
	"newsassist/internal/infrastructure/llm"
	"newsassist/internal/infrastructure/markup"
	"newsassist/internal/infrastructure/scheduler"
	"newsassist/internal/infrastructure/storage"
	"newsassist/internal/infrastructure/telegram"
	"newsassist/internal/logging"
	"newsassist/internal/ports"
	"newsassist/internal/search"
	"newsassist/internal/source"
	"newsassist/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	server    *httpapi.Server
	refresher *usecase.BackgroundRefresher
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	registry := source.NewRegistry()
	registry.Register(feedsource.NewRSSSource(nil))

	var archive ports.ItemArchive
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("open archive database", "error", err)
		} else {
			archive = storage.NewPostgresArchive(db)
		}
	}

	var alerter ports.Alerter
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		alerter = telegram.NewAlerter(tg.BotToken, tg.ChatID)
	}

	contentCache := cache.New(cache.Deps{
		TTL:      cfg.Cache.TTL(),
		Sections: cfg.Sections,
		Registry: registry,
		Archive:  archive,
		Alerter:  alerter,
		Logger:   baseLogger.With("component", "cache"),
	})

	var chatClient ports.ChatClient
	if cfg.Chat.APIKey != "" {
		chatClient = llm.NewClient(cfg.Chat)
	}

	assistant := usecase.NewAssistant(usecase.AssistantDeps{
		Cache:  contentCache,
		Engine: search.New(markup.StripTags),
		Chat:   chatClient,
		Processor: filter.NewProcessor(
			cfg.Filter.MaxMessageChars, cfg.Filter.MaxConversationChars,
			baseLogger.With("component", "filter")),
		MaxBuffer: cfg.Filter.MaxBufferChars,
		KeepTail:  cfg.Filter.KeepTailChars,
		Logger:    baseLogger.With("component", "assistant"),
	})

	refresher := usecase.NewBackgroundRefresher(
		scheduler.NewIntervalScheduler(cfg.Cache.TTL()),
		contentCache,
	)

	server := httpapi.NewServer(assistant, baseLogger.With("component", "http"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		server:    server,
		refresher: refresher,
	}
}

// Run starts the background refresher and serves HTTP until the context
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.refresher.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start(a.cfg.Server.Addr)
	}()

	a.logger.Info("listening", "addr", a.cfg.Server.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = a.refresher.Stop(shutdownCtx)
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
