package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postroom/postroom/internal/config"
	"github.com/postroom/postroom/internal/credential"
	"github.com/postroom/postroom/internal/database"
	"github.com/postroom/postroom/internal/dispatch"
	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/ratelimit"
	"github.com/postroom/postroom/internal/recipient"
	"github.com/postroom/postroom/internal/secret"
	"github.com/postroom/postroom/internal/settings"
	"github.com/postroom/postroom/internal/store/postgres"
	"github.com/postroom/postroom/internal/web"
	"github.com/postroom/postroom/internal/web/handlers"
	"github.com/postroom/postroom/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Migrations
	if err := database.RunMigrations(migrations.FS, cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Stores
	recipientStore := postgres.NewRecipientStore(db)
	templateStore := postgres.NewTemplateStore(db)
	credentialStore := postgres.NewCredentialStore(db)
	settingsStore := postgres.NewSettingsStore(db)
	logStore := postgres.NewEmailLogStore(db)

	// Secret sealing
	box, err := secret.NewBox(cfg.SecretKey)
	if err != nil {
		slog.Error("failed to initialise secret box", "error", err)
		os.Exit(1)
	}

	// Services
	recipientService := recipient.NewService(recipientStore)
	credentialService := credential.NewService(credentialStore, box)
	settingsService := settings.NewService(settingsStore)

	fallback := mail.TransportConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		Security: cfg.SMTPSecurity,
		From:     cfg.SMTPFrom,
	}
	resolver := credential.NewResolver(credentialStore, box, fallback)

	engine := dispatch.NewEngine(resolver, settingsStore, logStore)
	runner := dispatch.NewRunner(engine)

	// Rate limiter
	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Handlers
	recipientHandler := handlers.NewRecipientHandler(recipientService)
	templateHandler := handlers.NewTemplateHandler(templateStore)
	credentialHandler := handlers.NewCredentialHandler(credentialService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	logHandler := handlers.NewLogHandler(logStore, recipientStore, templateStore)
	dispatchHandler := handlers.NewDispatchHandler(recipientService, templateStore, runner)

	// Router
	router := web.NewRouter(web.RouterDeps{
		RecipientHandler:  recipientHandler,
		TemplateHandler:   templateHandler,
		CredentialHandler: credentialHandler,
		SettingsHandler:   settingsHandler,
		LogHandler:        logHandler,
		DispatchHandler:   dispatchHandler,
		Limiter:           limiter,
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Postroom starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
