package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cura-ai/cura/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnosis HTTP API server",
	Long: `Start the REST API server.

Examples:
  # Start with defaults (127.0.0.1:8080)
  cura serve

  # Start on custom host and port
  cura serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "host address to bind to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	requestTimeout, _ := time.ParseDuration(a.cfg.Server.RequestTimeout)
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Minute
	}
	shutdownTimeout, _ := time.ParseDuration(a.cfg.Server.ShutdownTimeout)
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	server := api.NewServer(a.engine, a.chat, a.registry, a.store,
		api.WithLogger(a.logger),
		api.WithRequestTimeout(requestTimeout),
		api.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
	)

	addr := net.JoinHostPort(a.cfg.Server.Host, fmt.Sprintf("%d", a.cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
