package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Roshick/go-autumn-assetlock/internal/app"
	"github.com/Roshick/go-autumn-assetlock/pkg/periodictask"
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

const censusTaskKey = "camera-census"

func newMonitorCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run the camera census and serve prometheus metrics",
		RunE: r.withApp(func(cmd *cobra.Command, a *app.App) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return monitor(ctx, a)
		}),
	}
}

func monitor(
	ctx context.Context,
	a *app.App,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	census := periodictask.NewSingleTaskRunner(ctx, censusTaskKey, a.Cameras.CensusTask, a.Coordinator, &periodictask.Config{
		TaskInterval:    a.Config.Census.Interval,
		TaskTimeout:     a.Config.Census.Timeout,
		RunnerFrequency: a.Config.Census.Frequency,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		aulogging.Logger.Ctx(ctx).Info().Printf("serving metrics on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		aulogging.Logger.Ctx(shutdownCtx).Warn().WithErr(shutdownErr).Printf("failed to shut down metrics server")
	}
	<-census.Done()
	return err
}
