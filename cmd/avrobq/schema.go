package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jittakal/avrobq/internal/bqschema"
	"github.com/jittakal/avrobq/internal/config"
	"github.com/jittakal/avrobq/internal/observability"
	"github.com/jittakal/avrobq/internal/source"
	"github.com/jittakal/avrobq/internal/storage"
)

func newSchemaCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "schema <file.avsc>",
		Short: "Print the BigQuery schema for an Avro record schema",
		Long: `Print the BigQuery table schema derived from an Avro record schema as a
JSON document on standard output.

The schema may be a local path or a gs://, s3:// or wasbs:// object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().Read(configPath(cfgFile))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := observability.NewLogger(observability.LoggingConfig{
				Level:  cfg.Observability.Logging.Level,
				Format: cfg.Observability.Logging.Format,
				Writer: cmd.ErrOrStderr(),
			})

			resolver := storage.NewResolver(cfg.Storage, cfg.Retry, logger, nil)
			defer resolver.Close()

			codec, err := source.LoadSchema(cmd.Context(), resolver, args[0])
			if err != nil {
				return err
			}
			doc, err := bqschema.Document(codec.Schema)
			if err != nil {
				return err
			}
			for _, n := range bqschema.NarrowedUnions(codec.Schema) {
				logger.Warn("union narrowed to its first member",
					"field", n.Path,
					"kept", n.Kept,
					"dropped", n.Dropped,
				)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			return err
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file")
	return cmd
}
