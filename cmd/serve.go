package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/adapter/llm"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/hub"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/lock"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/policy"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/service"
	handler "github.com/chips-fries/st-llm-search-engine-backend/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.L.Info("starting server",
		"http_port", cfg.HTTPPort,
		"cache_backend", cfg.Cache.Backend,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model)

	c, store, refresher, err := openSheets(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	eventHub := hub.NewHub()
	go eventHub.Run(ctx)

	svc := service.New(store, lock.NewRegistry(), refresher, refresher, policyEngine,
		llm.NewLLMClient(cfg.LLM), eventHub, cfg)
	go svc.RunLockSweeper(ctx)

	if cfg.WarmOnStart {
		go func() {
			if err := refresher.Refresh(ctx); err != nil {
				logger.L.Warn("initial sheet refresh failed", "error", err)
			}
		}()
	}

	e := handler.NewServer(cfg, svc, eventHub, refresher)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.L.Info("server started", "http_port", cfg.HTTPPort)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.L.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("failed to shutdown server gracefully", "error", err)
	}

	logger.L.Info("server stopped")
	return nil
}
