package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhenke/punch/internal/api"
	"github.com/jhenke/punch/internal/geofence"
	"github.com/jhenke/punch/internal/presenter"
	"github.com/jhenke/punch/internal/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the time clock for widgets and
geofence automations. By default it listens on port 8080. Use --port
to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	// The server keeps the latest snapshot in memory so the status
	// endpoint can answer without a db read, alongside the usual log sink.
	snapshots := &presenter.MemorySink{}
	serveReg := registry.New(s, registryConfig(), presenter.MultiSink{
		&presenter.LogSink{},
		snapshots,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fence := geofence.NewHandler(serveReg, slog.Default())
	go fence.Run(ctx)

	server := api.NewServer(s, serveReg, snapshots, fence.Events())

	port := viper.GetInt("port")
	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	ui.Info("Serving API at http://localhost%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
