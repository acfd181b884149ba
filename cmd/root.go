// Package cmd wires the command line interface: serve, migrate and
// version.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "asistente",
	Short: "Asistente SaludPlus - grounded member assistant service",
	Long: `Asistente SaludPlus serves a retrieval-grounded assistant over the
SaludPlus knowledge base: document ingestion, vector search against
PostgreSQL/pgvector, and conversational answering backed by Ollama.

Running without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
