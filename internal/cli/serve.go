package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"cheeseshop/internal/adapters/catalog"
)

const shutdownGrace = 10 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()
			if addr != "" {
				rt.cfg.HTTP.Addr = addr
			}
			ln, err := net.Listen("tcp", rt.cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			return serve(ctx, rt, ln)
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return c
}

// serve runs the HTTP server on ln until ctx ends, then drains in-flight
// requests and the export worker.
func serve(ctx context.Context, rt *runtime, ln net.Listener) error {
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	worker := catalog.NewWorker(rt.service, rt.blobs, rt.log)
	worker.Start()

	handler := catalog.NewHandler(rt.service)
	handler.Exports = worker
	handler.Logger = rt.log
	handler.CORSOrigins = rt.cfg.HTTP.CORSOrigins
	handler.Metrics = promhttp.InstrumentMetricHandler(rt.registry,
		promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry}))

	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       rt.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: rt.cfg.HTTP.ReadTimeout,
		WriteTimeout:      rt.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("http.listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	rt.log.Info("http.shutdown")
	shutdownErr := srv.Shutdown(shutdownCtx)
	workerErr := worker.Stop(shutdownCtx)

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return errors.Join(shutdownErr, workerErr)
}
