package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jittakal/avrobq/internal/config"
	"github.com/jittakal/avrobq/internal/config/dto"
	"github.com/jittakal/avrobq/internal/observability"
	"github.com/jittakal/avrobq/internal/pipeline"
	"github.com/jittakal/avrobq/internal/server"
	"github.com/jittakal/avrobq/internal/storage"
)

func newRunCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert Avro inputs into BigQuery JSON row parts",
		Long: `Convert every input named by -f into newline-delimited JSON parts under
the -o output prefix and write the BigQuery schema document next to them.

Inputs may be local files or directories, gs://, s3:// and wasbs:// objects
or prefixes, or kafka://topic for a bounded read of a whole topic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if err := loader.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := loader.Load(configPath(cfgFile))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runJob(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
	cmd.Flags().StringP("avroschema", "s", "", "Avro schema (.avsc) location")
	cmd.Flags().StringP("file", "f", "", "comma-separated Avro inputs")
	cmd.Flags().StringP("output", "o", "", "output directory or prefix")
	cmd.Flags().IntP("mapsize", "m", 512, "maximum part size in MB")
	cmd.Flags().IntP("rowsize", "r", 2*1024*1024, "maximum row size in bytes")
	cmd.Flags().Int("workers", 4, "number of inputs converted concurrently")
	cmd.Flags().StringP("compression", "z", "none", "part compression: none or gzip")

	return cmd
}

// runJob converts one job and prints its summary to out.
func runJob(ctx context.Context, cfg *dto.ApplicationConfig, out io.Writer) error {
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
	logger.Info("starting avrobq",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	resolver := storage.NewResolver(cfg.Storage, cfg.Retry, logger, metrics)
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("failed to close storage clients", "error", err)
		}
	}()

	runner := pipeline.NewRunner(pipeline.Config{
		Job:        cfg.Job,
		Processing: cfg.Processing,
		Kafka:      cfg.Kafka,
	}, resolver, logger, metrics)

	if cfg.Observability.Metrics.Enabled {
		httpServer := server.NewServer(server.Config{
			HealthPort:    cfg.Observability.Health.Port,
			LivenessPath:  cfg.Observability.Health.LivenessPath,
			ReadinessPath: cfg.Observability.Health.ReadinessPath,
			MetricsPort:   cfg.Observability.Metrics.Port,
			MetricsPath:   cfg.Observability.Metrics.Path,
		}, runner, registry, logger)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.GracePeriod())
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down HTTP server", "error", err)
			}
		}()
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: %d records written to %d parts, %d skipped, in %s\n",
		summary.RunID, summary.RecordsWritten, summary.Parts, summary.RecordsSkipped,
		summary.Duration.Round(time.Millisecond))
	return nil
}
