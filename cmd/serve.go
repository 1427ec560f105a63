package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ymatsuda/machichat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "チャットサーバーを起動する",
	Long:  `Starts the machichat HTTP server: a WebSocket chat endpoint plus a JSON API for sessions, properties and prompt templates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(cfg.Server, a.pipeline, a.store, a.properties, a.templates)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %s, shutting down\n", sig)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
