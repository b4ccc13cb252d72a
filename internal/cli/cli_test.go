package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rows = `[
	{"name": "Gum", "quantity": 1, "unitPrice": 15, "taxTreatment": "exclusive", "taxRatePercent": 10},
	{"name": "Candy", "quantity": "1", "unitPrice": "15", "taxTreatment": "税抜", "taxRatePercent": "10"}
]`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := []string{}
	for _, c := range NewRootCommand().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "totals", "slip", "export", "import"})
}

func TestTotals_Text(t *testing.T) {
	out, err := execute(t, rows, "totals")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"小計　¥30",
		"（外税10%対象額　¥30）",
		"外税額　10%　¥3",
		"買上点数　2点",
		"合計　¥33",
		"（内消費税等　¥3）",
	}, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestTotals_JSONFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o600))

	out, err := execute(t, "", "totals", "--file", path, "--json")
	require.NoError(t, err)

	var preview struct {
		Totals struct {
			Tax10      int64 `json:"tax10"`
			GrandTotal int64 `json:"grandTotal"`
		} `json:"totals"`
		Lines []json.RawMessage `json:"lines"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, int64(3), preview.Totals.Tax10)
	assert.Equal(t, int64(33), preview.Totals.GrandTotal)
	assert.Len(t, preview.Lines, 2)
}

func TestTotals_RejectsBadInput(t *testing.T) {
	_, err := execute(t, `{"name": "not a list"}`, "totals")
	assert.ErrorContains(t, err, "decode rows")
}

func TestSlip_RequiresOrderID(t *testing.T) {
	_, err := execute(t, "", "slip")
	assert.Error(t, err)
}

func TestNewSnowflakeNode(t *testing.T) {
	node, err := NewSnowflakeNode(config.Config{NodeID: 3})
	require.NoError(t, err)
	assert.NotZero(t, node.Generate())

	_, err = NewSnowflakeNode(config.Config{NodeID: 4096})
	assert.Error(t, err)
}
