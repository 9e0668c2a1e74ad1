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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/byte4ever/wrappers"
	"github.com/byte4ever/wrappers/metrics"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

var (
	serveConfigPath string
	serveStack      string
	serveAddr       string
	serveLogLevel   string
	serveWatch      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /hello behind the configured stack, plus /metrics and /status",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to the stack configuration file (required)")
	serveCmd.Flags().StringVar(&serveStack, "stack", "default", "name of the stack to serve /hello with")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the stack when the configuration file changes")
	_ = serveCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(serveCmd)
}

// newMux routes the demo endpoint, metrics and stack status.
func newMux(rl *reloader, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/hello", rl)
	mux.Handle("/metrics", metrics.Handler(gatherer))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		wrappers.StatusHandler(rl.Registry()).ServeHTTP(w, r)
	})

	return mux
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(serveLogLevel)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	rl, err := newReloader(serveConfigPath, serveWatch, func() (*app, error) {
		return buildApp(serveConfigPath, serveStack, m, logger)
	}, logger)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer rl.Close()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           newMux(rl, promReg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening", slog.String("addr", serveAddr), slog.String("stack", serveStack))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")

	return srv.Shutdown(shutdownCtx)
}
