package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/examkb/internal/api"
	"github.com/dgallion1/examkb/internal/pipeline"
	"github.com/dgallion1/examkb/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT or 8090)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: a.cfg.LogLevel}))

	if err := a.cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := pipeline.New(a.cfg, pipeline.Options{}, log)
	if err != nil {
		return err
	}

	// Storage is optional.
	var st store.Store
	if a.cfg.DatabaseURL != "" {
		st, err = store.Open(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(ctx); err != nil {
			return err
		}
	}

	srv := api.NewServer(p, st, log, a.cfg)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: a.cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting examkb", "port", a.cfg.Port, "database", st != nil)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		return err
	}
	<-done
	return nil
}
