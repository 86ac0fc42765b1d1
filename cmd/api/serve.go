package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/harentsoaR/clinic-api/internal/config"
	"github.com/harentsoaR/clinic-api/internal/handlers"
	"github.com/harentsoaR/clinic-api/internal/metrics"
	"github.com/harentsoaR/clinic-api/internal/registration"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
		return err
	}
	defer st.Close()
	logger.Info().Str("path", cfg.DatabasePath).Msg("database ready")

	// --- Services ---
	m := metrics.New()
	notificationSvc := services.NewNotificationService(cfg.TextbeltAPIKey, cfg.TextbeltURL, logger, m)
	if !notificationSvc.Enabled() {
		logger.Warn().Msg("TEXTBELT_API_KEY not set, SMS notifications disabled")
	}
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	regSvc := registration.NewService(st, hasher,
		registration.WithNotifier(notificationSvc),
		registration.WithMetrics(m),
		registration.WithLogger(logger.With().Str("component", "registration").Logger()),
	)

	h := handlers.NewHandler(st, regSvc, notificationSvc, hasher)
	router := handlers.NewRouter(h, handlers.RouterOptions{
		Tokens:      utils.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	notificationSvc.Wait()
	logger.Info().Msg("server stopped")
	return nil
}
