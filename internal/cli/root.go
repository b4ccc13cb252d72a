// Package cli is the orderdesk command line: the HTTP server plus one-shot
// commands that share its wiring.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

// NewRootCommand builds the orderdesk command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "orderdesk",
		Short: "Order entry with Japanese consumption tax",
		Long: `orderdesk records customer orders, computes 8% and 10% consumption tax
over exclusive rows, and prints order slips.

Configuration is read from the environment and an optional .env file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newTotalsCommand(),
		newSlipCommand(),
		newExportCommand(),
		newImportCommand(),
	)
	return root
}
