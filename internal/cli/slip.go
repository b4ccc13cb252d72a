package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/order"
	"github.com/smallbiznis/orderdesk/internal/slip"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newSlipCommand() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "slip <order-id>",
		Short: "Render the slip for a stored order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *slip.Service
			opts := fx.Options(
				coreOptions(config.Load()),
				order.Module,
				slip.Module,
				fx.Populate(&svc),
			)

			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				doc, err := svc.Render(ctx, args[0], format)
				if err != nil {
					return err
				}
				path := out
				if path == "" {
					path = doc.Filename
				}
				if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", slip.FormatPDF, "Output format: html or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, defaults to the slip file name")
	return cmd
}
