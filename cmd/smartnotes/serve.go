package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/config"
	"github.com/htonioni/smart-note-ai/internal/database"
	"github.com/htonioni/smart-note-ai/internal/gate"
	"github.com/htonioni/smart-note-ai/internal/logging"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"github.com/htonioni/smart-note-ai/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notes API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	defaults := config.NewViper()
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("ai-model", defaults.GetString("ai.model"), "Model used for note enrichment")
	cmd.PersistentFlags().Int("ai-requests-per-minute", defaults.GetInt("ai.requests_per_minute"), "AI request budget per minute")
	cmd.PersistentFlags().String("gate-signing-secret", "", "Gate session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "ai.model", "ai-model")
	bindFlag(cmd, "ai.requests_per_minute", "ai-requests-per-minute")
	bindFlag(cmd, "gate.signing_secret", "gate-signing-secret")

	return cmd
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	accessGate, err := gate.New(gate.Config{
		Answer:            appConfig.Gate.Answer,
		SigningSecret:     []byte(appConfig.Gate.SigningSecret),
		CookieName:        appConfig.Gate.CookieName,
		SessionTTL:        appConfig.Gate.SessionTTL,
		AttemptsPerMinute: appConfig.Gate.AttemptsPerMinute,
	})
	if err != nil {
		return err
	}
	if !accessGate.Enabled() {
		logger.Warn("access gate disabled")
	}

	deps := server.Dependencies{
		NotesService: notesService,
		Gate:         accessGate,
		Logger:       logger,
	}
	if appConfig.AI.Enabled() {
		aiClient, err := ai.NewClient(ai.ClientConfig{
			APIKey:            appConfig.AI.APIKey,
			BaseURL:           appConfig.AI.BaseURL,
			Model:             appConfig.AI.Model,
			RequestsPerMinute: appConfig.AI.RequestsPerMinute,
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		deps.Generator = aiClient
	} else {
		logger.Warn("ai generation disabled: no api key configured")
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
