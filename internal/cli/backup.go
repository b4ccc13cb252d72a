package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/smallbiznis/orderdesk/internal/backup"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/order"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func backupOptions(svc **backup.Service) fx.Option {
	return fx.Options(
		coreOptions(config.Load()),
		order.Module,
		backup.Module,
		fx.Populate(svc),
	)
}

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every order to a JSON backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *backup.Service
			return runOnce(cmd.Context(), backupOptions(&svc), func(ctx context.Context) error {
				data, filename, err := svc.Export(ctx)
				if err != nil {
					return err
				}
				if out == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				path := out
				if path == "" {
					path = filename
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, - for stdout; defaults to order-backup-<date>.json")
	return cmd
}

func newImportCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace every order with the contents of a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			var svc *backup.Service
			return runOnce(cmd.Context(), backupOptions(&svc), func(ctx context.Context) error {
				n, err := svc.Import(ctx, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d orders\n", n)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input, "file", "f", "-", "Backup file, - for stdin")
	return cmd
}
