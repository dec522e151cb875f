// Command devserver serves the chat relay over plain HTTP for local use.
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

	"bootcamp-tutor/handler"
	"bootcamp-tutor/internal/app"
	"bootcamp-tutor/internal/config"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve the bootcamp tutor relay at POST /api/chat",
		Long: `devserver runs the same relay as the Lambda function behind a local
HTTP listener. Configuration is read from the environment; set
OPENAI_API_KEY to skip the SSM parameter lookup.

Example:
  OPENAI_API_KEY=sk-... devserver --addr :8080
  curl -N -d '[{"role":"user","content":"What is a closure?"}]' localhost:8080/api/chat`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to $DEV_ADDR, then :8080)")
	return cmd
}

func run(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.DevAddr
	}
	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	svc, err := app.NewRelay(ctx, cfg, logger)
	if err != nil {
		return err
	}
	h, err := handler.NewHTTPHandler(svc, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", "addr", addr, "model", cfg.Model)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	logger.Info("devserver shutting down")
	return srv.Shutdown(shutdownCtx)
}
