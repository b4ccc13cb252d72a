package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/form"
	"github.com/smallbiznis/orderdesk/internal/slip"
	taxservice "github.com/smallbiznis/orderdesk/internal/tax/service"
	"github.com/spf13/cobra"
)

func newTotalsCommand() *cobra.Command {
	var (
		input      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Compute totals for a list of product rows",
		Long: `Reads a JSON array of product rows and prints the totals block as it
appears on the slip.

Each row has name, quantity, unitPrice, taxTreatment and taxRatePercent.

Examples:
  orderdesk totals --file rows.json
  cat rows.json | orderdesk totals --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			var lines []domain.RawLine
			if err := json.Unmarshal(data, &lines); err != nil {
				return fmt.Errorf("decode rows: %w", err)
			}

			preview := form.Preview(taxservice.NewCalculator(), lines)
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}
			for _, line := range slip.TotalLines(preview.Totals) {
				fmt.Fprintln(out, line.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "file", "f", "-", "Rows file, - for stdin")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print totals and rows as JSON")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
