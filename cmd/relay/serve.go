package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fjod/payment_relay/internal/config"
	"github.com/fjod/payment_relay/internal/forwarder"
	"github.com/fjod/payment_relay/internal/gateway"
	h "github.com/fjod/payment_relay/internal/http"
	"github.com/fjod/payment_relay/internal/notify"
	"github.com/fjod/payment_relay/internal/service"
	"github.com/fjod/payment_relay/internal/signature"
	"github.com/fjod/payment_relay/pkg/circuitbreaker"
	"github.com/fjod/payment_relay/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New(os.Stdout, cfg.Log.Level)
	ctx = logger.WithLogger(ctx, log)

	store, err := openLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close ledger", slog.String("error", err.Error()))
		}
	}()

	pub := newPublisher(cfg.Kafka, log)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("failed to close publisher", slog.String("error", err.Error()))
		}
	}()

	creds, closeCreds, err := newCredentials(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("backend credentials: %w", err)
	}
	defer closeCreds()

	notifier, err := newNotifier(ctx, cfg.Firebase, log)
	if err != nil {
		return fmt.Errorf("notifications: %w", err)
	}

	breaker := circuitbreaker.DefaultConfig()
	requestSigner := signature.NewRequestSigner(cfg.Gateway.Key1)

	gw := gateway.NewClient(gateway.Config{
		AppID:        cfg.Gateway.AppID,
		BaseURL:      cfg.Gateway.Endpoint,
		Timeout:      cfg.Gateway.Timeout,
		RetryCount:   cfg.Gateway.RetryCount,
		RetryWait:    cfg.Gateway.RetryWait,
		RetryMaxWait: cfg.Gateway.RetryMaxWait,
		Breaker:      breaker,
	}, requestSigner, log)

	orders := forwarder.New(forwarder.Config{
		BaseURL:  cfg.Backend.URL,
		Timeout:  cfg.Backend.Timeout,
		TokenTTL: cfg.Backend.TokenTTL,
		Breaker:  breaker,
	}, creds, notifier, notify.DefaultOrderCreated, log)

	checkout := service.NewCheckoutService(service.CheckoutConfig{
		AppID:       cfg.Gateway.AppID,
		CallbackURL: cfg.CallbackURL(),
		BankCode:    cfg.Gateway.BankCode,
	}, gw, requestSigner)

	callbacks := service.NewCallbackService(
		signature.NewCallbackVerifier(cfg.Gateway.Key2),
		gw,
		orders,
		store,
		pub,
	)

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:    cfg.Server.RequestTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		CallbackRateLimit: cfg.Server.CallbackRateLimit,
		CallbackRateBurst: cfg.Server.CallbackRateBurst,
	}, checkout, callbacks, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("payment relay starting",
			slog.String("addr", srv.Addr),
			slog.String("callback_url", cfg.CallbackURL()),
			slog.String("ledger", cfg.Ledger.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := notifier.Shutdown(shutdownCtx); err != nil {
		log.Warn("pending notifications dropped", slog.String("error", err.Error()))
	}

	log.Info("server exited")
	return nil
}
