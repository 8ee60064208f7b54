// Package cli wires configuration, storage and the HTTP surface into the
// cheeseshop command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"cheeseshop/internal/blob"
	"cheeseshop/internal/config"
	"cheeseshop/internal/core"
	"cheeseshop/internal/entitymodel"
	"cheeseshop/internal/infra/logger"
	"cheeseshop/pkg/domain"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "cheeseshop",
		Short:        "Producer and cheese catalog service",
		Version:      entitymodel.Version(),
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging with source locations")

	cmd.AddCommand(serveCmd(flags), seedCmd(flags), exportCmd(flags))
	return cmd
}

// runtime holds the wired dependencies shared by every subcommand.
type runtime struct {
	cfg      config.Config
	log      *slog.Logger
	store    domain.PersistentStore
	service  *core.Service
	registry *prometheus.Registry
	blobs    blob.Store
	cleanup  func() error
}

func (r *runtime) Close() error {
	var err error
	if r.store != nil {
		err = r.store.Close()
	}
	if r.cleanup != nil {
		if cerr := r.cleanup(); err == nil {
			err = cerr
		}
	}
	return err
}

func setup(ctx context.Context, flags *globalFlags, traceOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	cleanup, err := logger.Setup(cfg.LoggerConfig(flags.debug))
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	rt := &runtime{cfg: cfg, log: logger.L(), cleanup: cleanup}

	store, err := core.OpenPersistentStore(ctx, cfg.StorageOptions())
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.store = store

	rt.registry = prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(rt.registry)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	opts := []core.ServiceOption{
		core.WithLogger(rt.log),
		core.WithMetricsRecorder(metrics),
	}
	if flags.debug {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOut)))
	}
	rt.service = core.NewService(store, opts...)

	rt.blobs, err = blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	rt.log.Debug("runtime.ready",
		"storage", cfg.Storage.Driver,
		"blob", rt.blobs.Driver(),
	)
	return rt, nil
}
