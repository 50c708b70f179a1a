package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "avrobq",
		Short: "Convert Avro data into BigQuery newline-delimited JSON",
		Long: `avrobq converts Avro container files and Avro-encoded Kafka topics into
newline-delimited JSON rows that BigQuery can load, together with the
BigQuery table schema derived from the Avro record schema.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSchemaCommand())
	return rootCmd
}

// configPath picks the configuration file: the flag, then CONFIG_PATH,
// then the default location.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return "config/application.yaml"
}
